// Package model defines the order domain types and the queue message
// envelopes exchanged with the other services.
package model

import (
	"time"
)

// Product is a single line item of an order. Extra fields sent by the
// storefront are ignored; price is the only one the pipeline computes with.
type Product struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`
}

// OrderEvent is the inbound message consumed from the orders queue.
// It is delivered at-least-once and may be seen again after a crash
// before acknowledgement.
type OrderEvent struct {
	OrderID  string    `json:"orderId"`
	Username string    `json:"username"`
	Products []Product `json:"products"`
}

// Order is the aggregate built from an OrderEvent. TotalPrice always
// equals the sum of the product prices; it is set once at creation and
// never edited afterwards.
type Order struct {
	User       string    `json:"user"`
	Products   []Product `json:"products"`
	TotalPrice float64   `json:"totalPrice"`
}

// PersistedOrder is an Order after the store committed it, with the
// store-assigned identity attached.
type PersistedOrder struct {
	ID         string    `json:"id"`
	User       string    `json:"user"`
	Products   []Product `json:"products"`
	TotalPrice float64   `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FulfillmentEvent is the outbound message placed on the products queue
// once an order is stored and acknowledged. OrderID carries the original
// correlation key from the inbound event.
type FulfillmentEvent struct {
	OrderID    string    `json:"orderId"`
	User       string    `json:"user"`
	Products   []Product `json:"products"`
	TotalPrice float64   `json:"totalPrice"`
}
