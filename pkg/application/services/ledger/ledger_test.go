package ledger

import (
	"testing"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

func newTestLedger() *Ledger {
	l := New()
	l.Load(
		[]*entities.InventoryItem{
			{MaterialID: "M1", CurrentStock: 10},
			{MaterialID: "M2", CurrentStock: 90},
			{MaterialID: "UNUSED", CurrentStock: 1000},
		},
		[]*entities.BOMItem{
			{ProductID: "P1", MaterialID: "M1", QuantityPerUnit: 2},
			{ProductID: "P1", MaterialID: "M2", QuantityPerUnit: 1},
		},
	)
	return l
}

func TestLedger_LoadTracksOnlyBOMMaterials(t *testing.T) {
	l := newTestLedger()

	if _, ok := l.Stock("UNUSED"); ok {
		t.Error("Expected material outside every BOM to be untracked")
	}
	if got := l.InventoryPct(); got != 100 {
		t.Errorf("Expected 100%% at load, got %v", got)
	}
	if seed, _ := l.Seed("M2"); seed != 90 {
		t.Errorf("Expected seed 90, got %d", seed)
	}
	if len(l.BOM("P1")) != 2 {
		t.Errorf("Expected 2 BOM rows for P1, got %d", len(l.BOM("P1")))
	}
}

func TestLedger_ConsumeExactAmount(t *testing.T) {
	l := newTestLedger()

	consumed := l.Consume("P1", 3)

	if consumed["M1"] != 6 {
		t.Errorf("Expected 6 units of M1 consumed, got %d", consumed["M1"])
	}
	if stock, _ := l.Stock("M1"); stock != 4 {
		t.Errorf("Expected M1 stock 4, got %d", stock)
	}
	if stock, _ := l.Stock("M2"); stock != 87 {
		t.Errorf("Expected M2 stock 87, got %d", stock)
	}
}

func TestLedger_ConsumeFloorsAtZero(t *testing.T) {
	l := newTestLedger()

	consumed := l.Consume("P1", 50)

	if consumed["M1"] != 10 {
		t.Errorf("Expected only the available 10 units consumed, got %d", consumed["M1"])
	}
	for _, m := range l.Materials() {
		if stock, _ := l.Stock(m); stock < 0 {
			t.Errorf("Expected non-negative stock for %s, got %d", m, stock)
		}
	}
	if got := l.InventoryPct(); got != 40 {
		t.Errorf("Expected 40%% remaining, got %v", got)
	}
}

func TestLedger_CheckpointRestore(t *testing.T) {
	l := newTestLedger()
	cp := l.Checkpoint()

	l.Consume("P1", 2)
	l.Add("M9", 5)
	l.Restore(cp)

	if stock, _ := l.Stock("M1"); stock != 10 {
		t.Errorf("Expected M1 restored to 10, got %d", stock)
	}
	if _, ok := l.Stock("M9"); ok {
		t.Error("Expected material added after checkpoint to disappear")
	}
}

func TestLedger_AddDelivery(t *testing.T) {
	l := newTestLedger()
	l.Add("M1", 120)
	if stock, _ := l.Stock("M1"); stock != 130 {
		t.Errorf("Expected 130 after delivery, got %d", stock)
	}
}
