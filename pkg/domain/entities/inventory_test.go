package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInventoryItem_Validation(t *testing.T) {
	valid, err := NewInventoryItem("M014", "SUP-1", 200, decimal.NewFromFloat(12.5))
	if err != nil {
		t.Fatalf("Expected valid inventory item creation to succeed: %v", err)
	}
	if valid.CurrentStock != 200 {
		t.Errorf("Expected stock 200, got %d", valid.CurrentStock)
	}

	testCases := []struct {
		name        string
		materialID  MaterialID
		stock       Quantity
		unitCost    decimal.Decimal
		expectError string
	}{
		{"empty material", "", 10, decimal.Zero, "material id cannot be empty"},
		{"negative stock", "M1", -5, decimal.Zero, "current stock cannot be negative, got -5"},
		{"negative cost", "M1", 5, decimal.NewFromInt(-2), "unit cost cannot be negative, got -2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventoryItem(tc.materialID, "SUP-1", tc.stock, tc.unitCost)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestSupplier_Validation(t *testing.T) {
	if _, err := NewSupplier("", "Acme", 5); err == nil {
		t.Error("Expected error for empty supplier id")
	}
	if _, err := NewSupplier("SUP-1", "Acme", -1); err == nil {
		t.Error("Expected error for negative lead time")
	}

	supplier, err := NewSupplier("SUP-1", "Acme", 5)
	if err != nil {
		t.Fatalf("Expected valid supplier creation to succeed: %v", err)
	}
	if supplier.LeadTimeDays != 5 {
		t.Errorf("Expected lead time 5, got %d", supplier.LeadTimeDays)
	}
}

func TestPurchaseOrder_Lifecycle(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	po, err := NewPurchaseOrder("PO-M1-20250301", "M1", "SUP-1", 120, today, today.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("Expected valid purchase order creation to succeed: %v", err)
	}
	if po.Status != POPlaced {
		t.Errorf("Expected status PLACED, got %s", po.Status)
	}
	if !po.IsOpen() {
		t.Error("Expected new purchase order to be open")
	}

	for _, status := range []PurchaseOrderStatus{POExpedited, PODelayed} {
		po.Status = status
		if !po.IsOpen() {
			t.Errorf("Expected %s purchase order to be open", status)
		}
	}

	po.Status = PODelivered
	if po.IsOpen() {
		t.Error("Expected delivered purchase order to be closed")
	}

	if _, err := NewPurchaseOrder("PO-1", "M1", "SUP-1", 0, today, today); err == nil {
		t.Error("Expected error for zero quantity")
	}
	if _, err := NewPurchaseOrder("PO-1", "M1", "SUP-1", 10, today, today.AddDate(0, 0, -1)); err == nil {
		t.Error("Expected error for eta before order date")
	}
}
