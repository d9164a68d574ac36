package domain

import "strings"

// StatusClass is the coarse presentation bucket derived from a raw order
// status. It drives badge colouring only and carries no behaviour.
type StatusClass string

const (
	// StatusClassSuccess covers paid, completed, and processing orders.
	StatusClassSuccess StatusClass = "success"
	// StatusClassPending covers orders awaiting payment or manual action.
	StatusClassPending StatusClass = "pending"
	// StatusClassFailure covers refunded and cancelled orders.
	StatusClassFailure StatusClass = "failure"
	// StatusClassUnknown covers every status the storefront does not recognise.
	StatusClassUnknown StatusClass = "unknown"
)

// ClassifyStatus maps a raw order status string to its presentation class.
// Matching is case-insensitive and tolerant of hyphen/underscore separators.
// It is total: unrecognised or empty input falls through to unknown.
func ClassifyStatus(status string) StatusClass {
	normalised := strings.ToLower(strings.TrimSpace(status))
	normalised = strings.ReplaceAll(normalised, "-", " ")
	normalised = strings.ReplaceAll(normalised, "_", " ")

	switch normalised {
	case "paid", "completed", "processing":
		return StatusClassSuccess
	case "pending", "on hold":
		return StatusClassPending
	case "refunded", "cancelled", "canceled":
		return StatusClassFailure
	default:
		return StatusClassUnknown
	}
}
