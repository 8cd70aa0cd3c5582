package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a supplier purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft              PurchaseOrderStatus = "draft"
	PurchaseOrderStatusSent               PurchaseOrderStatus = "sent"
	PurchaseOrderStatusConfirmed          PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusPartiallyDelivered PurchaseOrderStatus = "partially_delivered"
	PurchaseOrderStatusCompleted          PurchaseOrderStatus = "completed"
	PurchaseOrderStatusCancelled          PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusSent,
	PurchaseOrderStatusConfirmed,
	PurchaseOrderStatusPartiallyDelivered,
	PurchaseOrderStatusCompleted,
	PurchaseOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusCompleted || s == PurchaseOrderStatusCancelled
}

// AcceptsDeliveries reports whether goods may be received against the order.
func (s PurchaseOrderStatus) AcceptsDeliveries() bool {
	switch s {
	case PurchaseOrderStatusSent, PurchaseOrderStatusConfirmed, PurchaseOrderStatusPartiallyDelivered:
		return true
	default:
		return false
	}
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
