package domain

import "fmt"

// DeliveryStatus is the monotonic per-message delivery state.
// Valid transitions move forward only: sent -> delivered -> read.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// statusRank orders statuses for monotonicity checks
var statusRank = map[DeliveryStatus]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// ParseDeliveryStatus validates a wire-level status string
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case StatusSent, StatusDelivered, StatusRead:
		return DeliveryStatus(s), nil
	}
	return "", fmt.Errorf("unknown delivery status %q", s)
}

// CanAdvance reports whether moving from the current status to next is a
// forward transition. Moving to the same or an earlier status is not an
// error at call sites; it is treated as an idempotent no-op.
func (s DeliveryStatus) CanAdvance(next DeliveryStatus) bool {
	return statusRank[next] > statusRank[s]
}

// Advance returns the later of the two statuses, making repeated
// transition attempts idempotent regardless of interleaving
func (s DeliveryStatus) Advance(next DeliveryStatus) DeliveryStatus {
	if s.CanAdvance(next) {
		return next
	}
	return s
}
