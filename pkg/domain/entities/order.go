package entities

import (
	"fmt"
	"time"
)

// OrderStatus represents the lifecycle state of a manufacturing order
type OrderStatus string

const (
	OrderOpen      OrderStatus = "OPEN"
	OrderOnHold    OrderStatus = "ON_HOLD"
	OrderCompleted OrderStatus = "COMPLETED"
)

const (
	// SpikePriority is the priority carried by urgent spike orders
	SpikePriority = 1
	// DefaultPriority is used when an order does not specify one
	DefaultPriority = 5
)

// Order is a demand for Quantity units of a product by DispatchDate
type Order struct {
	OrderID      string
	ProductID    ProductID
	Quantity     Quantity
	StartDate    time.Time // zero = unset, planning uses today
	DispatchDate time.Time
	Status       OrderStatus
	Priority     int // 1 = highest
	IsSpike      bool
}

// NewOrder creates a validated OPEN Order. Spike orders always carry SpikePriority.
func NewOrder(
	orderID string,
	productID ProductID,
	quantity Quantity,
	startDate, dispatchDate time.Time,
	priority int,
	isSpike bool,
) (*Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if string(productID) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if !startDate.IsZero() && !dispatchDate.IsZero() && startDate.After(dispatchDate) {
		return nil, fmt.Errorf("start date %v cannot be after dispatch date %v", startDate, dispatchDate)
	}
	if priority < 0 {
		return nil, fmt.Errorf("priority cannot be negative, got %d", priority)
	}
	if priority == 0 {
		priority = DefaultPriority
	}
	if isSpike {
		priority = SpikePriority
	}

	return &Order{
		OrderID:      orderID,
		ProductID:    productID,
		Quantity:     quantity,
		StartDate:    startDate,
		DispatchDate: dispatchDate,
		Status:       OrderOpen,
		Priority:     priority,
		IsSpike:      isSpike,
	}, nil
}

// Clone returns a copy that can be mutated independently
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
