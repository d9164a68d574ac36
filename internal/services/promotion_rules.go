package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"gopkg.in/yaml.v3"

	"github.com/gohaste/storefront/internal/domain"
)

// ErrPromotionInvalidRule indicates a rule pack entry cannot be used.
var ErrPromotionInvalidRule = errors.New("promotion rules: invalid rule")

const (
	promotionTypePercentage = "percentage"
	promotionTypeFixed      = "fixed"
)

type promotionRulePack struct {
	Rules []promotionRuleSpec `yaml:"rules"`
}

type promotionRuleSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Type        string         `yaml:"type"`
	Value       int64          `yaml:"value"`
	Condition   map[string]any `yaml:"condition"`
}

// promotionRule is a DiscountRule driven by a declarative rule pack entry.
// The condition is a JsonLogic expression evaluated against the cart facts;
// a rule with no condition always applies.
type promotionRule struct {
	name        string
	description string
	kind        string
	value       int64
	condition   any
}

// LoadPromotionRules reads a YAML rule pack from disk.
func LoadPromotionRules(path string) ([]DiscountRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("promotion rules: open %s: %w", path, err)
	}
	defer f.Close()
	return ParsePromotionRules(f)
}

// ParsePromotionRules decodes a YAML rule pack into discount rules.
func ParsePromotionRules(r io.Reader) ([]DiscountRule, error) {
	var pack promotionRulePack
	if err := yaml.NewDecoder(r).Decode(&pack); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("promotion rules: decode: %w", err)
	}

	rules := make([]DiscountRule, 0, len(pack.Rules))
	for i, spec := range pack.Rules {
		rule, err := newPromotionRule(spec)
		if err != nil {
			return nil, fmt.Errorf("promotion rules: rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func newPromotionRule(spec promotionRuleSpec) (*promotionRule, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrPromotionInvalidRule)
	}
	kind := strings.ToLower(strings.TrimSpace(spec.Type))
	if kind != promotionTypePercentage && kind != promotionTypeFixed {
		return nil, fmt.Errorf("%w: type must be percentage or fixed, got %q", ErrPromotionInvalidRule, spec.Type)
	}
	if spec.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrPromotionInvalidRule)
	}
	if kind == promotionTypePercentage && spec.Value > 10000 {
		return nil, fmt.Errorf("%w: percentage value is basis points, max 10000", ErrPromotionInvalidRule)
	}

	condition, err := normaliseCondition(spec.Condition)
	if err != nil {
		return nil, err
	}

	return &promotionRule{
		name:        name,
		description: strings.TrimSpace(spec.Description),
		kind:        kind,
		value:       spec.Value,
		condition:   condition,
	}, nil
}

// normaliseCondition round-trips the YAML mapping through JSON so the
// evaluator sees the types it expects (float64 numbers, map[string]any).
func normaliseCondition(raw map[string]any) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: condition: %v", ErrPromotionInvalidRule, err)
	}
	var condition any
	if err := json.Unmarshal(encoded, &condition); err != nil {
		return nil, fmt.Errorf("%w: condition: %v", ErrPromotionInvalidRule, err)
	}
	// Probe the expression against empty facts so a malformed rule fails at
	// load time rather than during checkout.
	if _, err := jsonlogic.ApplyInterface(condition, map[string]any{}); err != nil {
		return nil, fmt.Errorf("%w: condition: %v", ErrPromotionInvalidRule, err)
	}
	return condition, nil
}

func (r *promotionRule) Name() string { return r.name }

func (r *promotionRule) Apply(ctx context.Context, items []domain.LineItem, subtotal int64) (DiscountResult, error) {
	if r.condition != nil {
		matched, err := r.evaluate(items, subtotal)
		if err != nil {
			return DiscountResult{}, fmt.Errorf("promotion rules: evaluate %s: %w", r.name, err)
		}
		if !matched {
			return DiscountResult{}, nil
		}
	}

	var amount int64
	switch r.kind {
	case promotionTypePercentage:
		amount = roundHalfEven(subtotal*r.value, 10000)
	case promotionTypeFixed:
		amount = r.value
	}
	if amount > subtotal {
		amount = subtotal
	}
	return DiscountResult{Amount: amount, Description: r.description}, nil
}

func (r *promotionRule) evaluate(items []domain.LineItem, subtotal int64) (bool, error) {
	totalQuantity := 0
	productIDs := make([]any, 0, len(items))
	for _, item := range items {
		totalQuantity += item.Quantity
		productIDs = append(productIDs, item.ProductID)
	}

	data := map[string]any{
		"subtotal":      float64(subtotal),
		"itemCount":     float64(len(items)),
		"totalQuantity": float64(totalQuantity),
		"productIds":    productIDs,
	}

	result, err := jsonlogic.ApplyInterface(r.condition, data)
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", result)
	}
	return matched, nil
}
