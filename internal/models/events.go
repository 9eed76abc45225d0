package models

import "time"

// Event types
const (
	EventTypeSaleCompleted   = "SALE_COMPLETED"
	EventTypeProductChanged  = "PRODUCT_CHANGED"
	EventTypeCustomerChanged = "CUSTOMER_CHANGED"
)

// Change actions carried by catalog and customer events
const (
	ChangeActionCreated     = "created"
	ChangeActionUpdated     = "updated"
	ChangeActionDeactivated = "deactivated"
	ChangeActionDeleted     = "deleted"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCompletedEvent published after a sale commits
type SaleCompletedEvent struct {
	BaseEvent
	SaleID        int64          `json:"sale_id"`
	ReceiptNumber string         `json:"receipt_number"`
	CustomerID    *int64         `json:"customer_id,omitempty"`
	FinalAmount   string         `json:"final_amount"`
	PointsEarned  int            `json:"points_earned"`
	Items         []SoldItemData `json:"items"`
}

// SoldItemData represents a sold line in events
type SoldItemData struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// ProductChangedEvent published on catalog writes
type ProductChangedEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	Action    string `json:"action"`
}

// CustomerChangedEvent published on customer account writes
type CustomerChangedEvent struct {
	BaseEvent
	CustomerID    int64  `json:"customer_id"`
	Action        string `json:"action"`
	LoyaltyPoints int    `json:"loyalty_points"`
}
