package entities

import (
	"testing"
	"time"
)

func TestMinQuantity(t *testing.T) {
	if got := MinQuantity(5); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if got := MinQuantity(500, 850, Unbounded); got != 500 {
		t.Errorf("Expected 500, got %d", got)
	}
	if got := MinQuantity(Unbounded, 0, 3); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}

func TestLine_Validation(t *testing.T) {
	line, err := NewLine("L1", "P-HE", 100, 0.85)
	if err != nil {
		t.Fatalf("Expected valid line creation to succeed: %v", err)
	}
	if got := line.EffectiveDailyCapacity(); got != 85 {
		t.Errorf("Expected effective capacity 85, got %v", got)
	}

	if _, err := NewLine("L1", "P-HE", 100, 1.5); err == nil {
		t.Error("Expected error for OEE above 1")
	}
	if _, err := NewLine("L1", "P-HE", -1, 0.5); err == nil {
		t.Error("Expected error for negative capacity")
	}
	if _, err := NewLine("", "P-HE", 100, 0.5); err == nil {
		t.Error("Expected error for empty line id")
	}
}

func TestDates(t *testing.T) {
	a := time.Date(2025, 1, 1, 23, 30, 0, 0, time.UTC)
	b := time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC)

	if got := DaysBetween(a, b); got != 9 {
		t.Errorf("Expected 9 days, got %d", got)
	}
	if got := DaysBetween(b, a); got != -9 {
		t.Errorf("Expected -9 days, got %d", got)
	}
	if got := AddDays(a, 5); !got.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected 2025-01-06, got %v", got)
	}
}

func TestPlanItem_Validation(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := NewPlanItem("", "L1", "P1", 5, start, start); err == nil {
		t.Error("Expected error for empty plan id")
	}
	if _, err := NewPlanItem("PLAN-1", "L1", "P1", 0, start, start); err == nil {
		t.Error("Expected error for zero quantity")
	}
	if _, err := NewPlanItem("PLAN-1", "L1", "P1", 5, start, start.Add(-time.Hour)); err == nil {
		t.Error("Expected error for end before start")
	}

	if got := ProductPlanID("RUN-20250101000000", "ORD-1"); got != "PLAN-RUN-20250101000000-ORD-1" {
		t.Errorf("Unexpected plan id %s", got)
	}
}
