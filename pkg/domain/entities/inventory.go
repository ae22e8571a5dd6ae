package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Supplier delivers materials after a fixed lead time
type Supplier struct {
	SupplierID        string
	Name              string
	Location          string
	LeadTimeDays      int
	ReliabilityPct    float64
	AlternateSupplier bool
}

// NewSupplier creates a validated Supplier
func NewSupplier(supplierID, name string, leadTimeDays int) (*Supplier, error) {
	if supplierID == "" {
		return nil, fmt.Errorf("supplier id cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}
	return &Supplier{
		SupplierID:     supplierID,
		Name:           name,
		LeadTimeDays:   leadTimeDays,
		ReliabilityPct: 100,
	}, nil
}

// InventoryItem is the master row of a material's stock ledger
type InventoryItem struct {
	MaterialID   MaterialID
	Description  string
	Category     string
	ReorderPoint Quantity
	SafetyStock  Quantity
	LeadTimeDays int
	SupplierID   string
	CurrentStock Quantity
	UnitCost     decimal.Decimal
}

// NewInventoryItem creates a validated InventoryItem
func NewInventoryItem(materialID MaterialID, supplierID string, currentStock Quantity, unitCost decimal.Decimal) (*InventoryItem, error) {
	if string(materialID) == "" {
		return nil, fmt.Errorf("material id cannot be empty")
	}
	if currentStock < 0 {
		return nil, fmt.Errorf("current stock cannot be negative, got %d", currentStock)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}

	return &InventoryItem{
		MaterialID:   materialID,
		SupplierID:   supplierID,
		CurrentStock: currentStock,
		UnitCost:     unitCost,
	}, nil
}

// Clone returns a copy that can be mutated independently
func (i *InventoryItem) Clone() *InventoryItem {
	c := *i
	return &c
}

// PurchaseOrderStatus represents the state of a replenishment order
type PurchaseOrderStatus string

const (
	POPlaced    PurchaseOrderStatus = "PLACED"
	POExpedited PurchaseOrderStatus = "EXPEDITED"
	PODelayed   PurchaseOrderStatus = "DELAYED"
	PODelivered PurchaseOrderStatus = "DELIVERED"
)

// PurchaseOrder is an outstanding or delivered replenishment order
type PurchaseOrder struct {
	POID       string
	MaterialID MaterialID
	SupplierID string
	Quantity   Quantity
	OrderDate  time.Time
	ETA        time.Time
	Status     PurchaseOrderStatus
}

// NewPurchaseOrder creates a validated PLACED PurchaseOrder
func NewPurchaseOrder(poID string, materialID MaterialID, supplierID string, quantity Quantity, orderDate, eta time.Time) (*PurchaseOrder, error) {
	if poID == "" {
		return nil, fmt.Errorf("purchase order id cannot be empty")
	}
	if string(materialID) == "" {
		return nil, fmt.Errorf("material id cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if eta.Before(orderDate) {
		return nil, fmt.Errorf("eta %v cannot be before order date %v", eta, orderDate)
	}

	return &PurchaseOrder{
		POID:       poID,
		MaterialID: materialID,
		SupplierID: supplierID,
		Quantity:   quantity,
		OrderDate:  orderDate,
		ETA:        eta,
		Status:     POPlaced,
	}, nil
}

// IsOpen reports whether the purchase order has not been delivered yet
func (po *PurchaseOrder) IsOpen() bool {
	return po.Status != PODelivered
}

// Clone returns a copy that can be mutated independently
func (po *PurchaseOrder) Clone() *PurchaseOrder {
	c := *po
	return &c
}
