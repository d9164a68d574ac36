package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stuart.com/v2"

// ErrDeliveryDisabled indicates the courier integration is switched off.
var ErrDeliveryDisabled = errors.New("delivery: integration disabled")

// ErrDeliveryInvalidInput indicates the job request is unusable.
var ErrDeliveryInvalidInput = errors.New("delivery: invalid input")

// ErrDeliveryUnavailable indicates the courier API could not fulfil the request.
var ErrDeliveryUnavailable = errors.New("delivery: unavailable")

// Contact identifies a person at a pickup or dropoff location.
type Contact struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Location is a courier pickup or dropoff point.
type Location struct {
	Address    string   `json:"address"`
	PostalCode string   `json:"postal_code"`
	City       string   `json:"city"`
	Country    string   `json:"country"`
	Contact    *Contact `json:"contact,omitempty"`
}

// ParcelItem describes one package line within a job.
type ParcelItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Weight      float64 `json:"weight"`
}

// JobRequest is the payload for creating a courier job.
type JobRequest struct {
	Reference   string       `json:"reference"`
	Origin      Location     `json:"origin"`
	Destination Location     `json:"destination"`
	Items       []ParcelItem `json:"line_items"`
}

// Driver describes the courier assigned to a delivery.
type Driver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Vehicle string `json:"vehicle"`
}

// Tracking is the courier-side view of a delivery in flight.
type Tracking struct {
	DeliveryID       string  `json:"delivery_id"`
	Status           string  `json:"status"`
	EstimatedArrival string  `json:"estimated_arrival"`
	Driver           *Driver `json:"driver_info,omitempty"`
}

// Config carries the courier client construction parameters.
type Config struct {
	BaseURL    string
	APIKey     string
	Enabled    bool
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     func(context.Context, string, map[string]any)
}

// Client talks to a Stuart-compatible courier API. Every call is a single
// attempt; callers decide whether a failed booking matters.
type Client struct {
	baseURL string
	apiKey  string
	enabled bool
	httpc   *http.Client
	logger  func(context.Context, string, map[string]any)
}

// NewClient constructs a courier Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		enabled: cfg.Enabled && strings.TrimSpace(cfg.APIKey) != "",
		httpc:   httpc,
		logger:  logger,
	}, nil
}

// Enabled reports whether the integration is configured and switched on.
func (c *Client) Enabled() bool {
	return c.enabled
}

// CreateJob books a courier job and returns its identifier.
func (c *Client) CreateJob(ctx context.Context, req JobRequest) (string, error) {
	if !c.enabled {
		return "", ErrDeliveryDisabled
	}
	if strings.TrimSpace(req.Reference) == "" {
		return "", fmt.Errorf("%w: reference is required", ErrDeliveryInvalidInput)
	}
	if req.Origin.Address == "" || req.Destination.Address == "" {
		return "", fmt.Errorf("%w: origin and destination are required", ErrDeliveryInvalidInput)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: job created without an id", ErrDeliveryUnavailable)
	}

	c.logger(ctx, "delivery.job_created", map[string]any{"jobId": out.ID, "reference": req.Reference})
	return out.ID, nil
}

// GetTracking fetches the live state of a delivery.
func (c *Client) GetTracking(ctx context.Context, deliveryID string) (Tracking, error) {
	if !c.enabled {
		return Tracking{}, ErrDeliveryDisabled
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return Tracking{}, fmt.Errorf("%w: delivery id is required", ErrDeliveryInvalidInput)
	}

	var out struct {
		ID       string  `json:"id"`
		Status   string  `json:"status"`
		ETA      string  `json:"eta"`
		Assignee *Driver `json:"assignee"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+deliveryID, nil, &out); err != nil {
		return Tracking{}, err
	}

	return Tracking{
		DeliveryID:       out.ID,
		Status:           out.Status,
		EstimatedArrival: out.ETA,
		Driver:           out.Assignee,
	}, nil
}

// CancelJob cancels a courier job.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	if !c.enabled {
		return ErrDeliveryDisabled
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("%w: job id is required", ErrDeliveryInvalidInput)
	}
	if err := c.do(ctx, http.MethodDelete, "/jobs/"+jobID, nil, nil); err != nil {
		return err
	}
	c.logger(ctx, "delivery.job_cancelled", map[string]any{"jobId": jobID})
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode payload: %v", ErrDeliveryInvalidInput, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDeliveryUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d", ErrDeliveryInvalidInput, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrDeliveryUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrDeliveryUnavailable, err)
	}
	return nil
}
