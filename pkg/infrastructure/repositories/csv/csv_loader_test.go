package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/repositories/memory"
)

var today = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadScenario_ExampleDirectory(t *testing.T) {
	loader := NewLoader(today)
	scenario, err := loader.LoadScenario(filepath.Join("..", "..", "..", "..", "example", "scenario"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	if len(scenario.Lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(scenario.Lines))
	}
	if len(scenario.BOM) != 15 {
		t.Errorf("Expected 15 BOM rows, got %d", len(scenario.BOM))
	}
	if len(scenario.Orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(scenario.Orders))
	}
	if len(scenario.MachineParameters) != 4 {
		t.Errorf("Expected 4 machine parameters, got %d", len(scenario.MachineParameters))
	}

	order := scenario.Orders[0]
	if want := entities.AddDays(today, 9); !order.DispatchDate.Equal(want) {
		t.Errorf("Expected dispatch %v, got %v", want, order.DispatchDate)
	}
	if order.Priority != entities.DefaultPriority {
		t.Errorf("Expected default priority, got %d", order.Priority)
	}

	l1 := scenario.Lines[0]
	if l1.Name != "HighRange_Line1" || l1.MTTRHours != 2.5 || l1.OEE != 0.88 {
		t.Errorf("Unexpected line L1: %+v", l1)
	}

	store := memory.NewStore()
	if err := store.WithinTx(context.Background(), scenario.Load); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		item, err := uow.Inventory().GetInventoryItem("M014")
		if err != nil {
			return err
		}
		if item.CurrentStock != 3000 || item.UnitCost.String() != "13922" || item.Description != "Chip" {
			t.Errorf("Unexpected M014 row: %+v", item)
		}
		supplier, err := uow.Suppliers().GetSupplier("SUP06")
		if err != nil {
			return err
		}
		if !supplier.AlternateSupplier || supplier.LeadTimeDays != 4 {
			t.Errorf("Unexpected SUP06 row: %+v", supplier)
		}
		orders, err := uow.Orders().GetAllOrders()
		if err != nil {
			return err
		}
		if len(orders) != 2 {
			t.Errorf("Expected 2 stored orders, got %d", len(orders))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestLoadScenario_OptionalFilesMayBeMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LinesFile, "line_id,name,product_id,daily_capacity,oee,mtbf_hours,mttr_hours\nL1,,P-A,100,1.0,,\n")
	writeFile(t, dir, BOMFile, "product_id,material_id,quantity_per_unit\nP-A,M001,1\n")
	writeFile(t, dir, InventoryFile, "material_id,description,category,reorder_point,safety_stock,lead_time_days,supplier_id,current_stock,unit_cost\nM001,Chip,Electrical,10,5,3,SUP-A,80,4.00\n")
	writeFile(t, dir, SuppliersFile, "supplier_id,name,location,lead_time_days,reliability_pct,alternate_supplier\nSUP-A,Alpha,Pune,3,95,no\n")

	scenario, err := NewLoader(today).LoadScenario(dir)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(scenario.Orders) != 0 || len(scenario.MachineParameters) != 0 {
		t.Errorf("Expected no orders or machine parameters, got %d/%d", len(scenario.Orders), len(scenario.MachineParameters))
	}
	if scenario.Lines[0].Name != "L1" || scenario.Lines[0].MTBFHours != 100 {
		t.Errorf("Expected line defaults, got %+v", scenario.Lines[0])
	}
}

func TestLoadBOM_KeepsRepeatedRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), BOMFile, "product_id,material_id,quantity_per_unit\nP-ME,M079,1\nP-ME,M013,10\nP-ME,M079,4\n")

	items, err := NewLoader(today).LoadBOM(path)
	if err != nil {
		t.Fatalf("LoadBOM: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected every row, got %d", len(items))
	}
	if items[2].MaterialID != "M079" || items[2].QuantityPerUnit != 4 {
		t.Errorf("Expected M079 x4 last, got %s x%d", items[2].MaterialID, items[2].QuantityPerUnit)
	}
}

func TestLoadOrders_Dates(t *testing.T) {
	path := writeFile(t, t.TempDir(), OrdersFile,
		"order_id,product_id,quantity,start_date,dispatch_date,priority,is_spike\n"+
			"O1,P-A,100,2025-03-04,2025-03-10,3,no\n"+
			"S1,P-A,50,,+2,7,yes\n"+
			"O2,P-A,10,,,,\n")

	orders, err := NewLoader(today).LoadOrders(path)
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(orders))
	}

	if want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC); !orders[0].DispatchDate.Equal(want) {
		t.Errorf("O1 dispatch: expected %v, got %v", want, orders[0].DispatchDate)
	}
	if orders[0].Priority != 3 {
		t.Errorf("O1 priority: expected 3, got %d", orders[0].Priority)
	}
	if !orders[1].IsSpike || orders[1].Priority != entities.SpikePriority {
		t.Errorf("S1 should be a priority-1 spike, got %+v", orders[1])
	}
	if want := entities.AddDays(today, 2); !orders[1].DispatchDate.Equal(want) {
		t.Errorf("S1 dispatch: expected %v, got %v", want, orders[1].DispatchDate)
	}
	if !orders[2].DispatchDate.IsZero() || !orders[2].StartDate.IsZero() {
		t.Errorf("O2 dates should be unset, got %+v", orders[2])
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		load    func(l *Loader, path string) error
		wantErr string
	}{
		{
			name:    "header mismatch",
			file:    BOMFile,
			content: "product,material,qty\nP-A,M001,1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadBOM(p); return err },
			wantErr: "header mismatch",
		},
		{
			name:    "missing data rows",
			file:    LinesFile,
			content: "line_id,name,product_id,daily_capacity,oee,mtbf_hours,mttr_hours\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadLines(p); return err },
			wantErr: "at least one data row",
		},
		{
			name:    "bad number",
			file:    InventoryFile,
			content: "material_id,description,category,reorder_point,safety_stock,lead_time_days,supplier_id,current_stock,unit_cost\nM001,,,x,0,0,SUP,10,1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadInventory(p); return err },
			wantErr: "row 2: invalid reorder_point",
		},
		{
			name:    "bad cost",
			file:    InventoryFile,
			content: "material_id,description,category,reorder_point,safety_stock,lead_time_days,supplier_id,current_stock,unit_cost\nM001,,,1,0,0,SUP,10,abc\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadInventory(p); return err },
			wantErr: "invalid unit_cost",
		},
		{
			name:    "constructor validation",
			file:    LinesFile,
			content: "line_id,name,product_id,daily_capacity,oee,mtbf_hours,mttr_hours\nL1,,P-A,100,1.5,,\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadLines(p); return err },
			wantErr: "oee must be between 0 and 1",
		},
		{
			name:    "bad flag",
			file:    SuppliersFile,
			content: "supplier_id,name,location,lead_time_days,reliability_pct,alternate_supplier\nS,,,1,90,maybe\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadSuppliers(p); return err },
			wantErr: "invalid alternate_supplier",
		},
		{
			name:    "bad relative date",
			file:    OrdersFile,
			content: "order_id,product_id,quantity,start_date,dispatch_date,priority,is_spike\nO1,P-A,1,,+x,,\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadOrders(p); return err },
			wantErr: "invalid dispatch_date",
		},
		{
			name:    "start after dispatch",
			file:    OrdersFile,
			content: "order_id,product_id,quantity,start_date,dispatch_date,priority,is_spike\nO1,P-A,1,+5,+2,,\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadOrders(p); return err },
			wantErr: "cannot be after dispatch date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			err := tt.load(NewLoader(today), path)
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadScenario_MissingRequiredFile(t *testing.T) {
	_, err := NewLoader(today).LoadScenario(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "failed to open lines file") {
		t.Fatalf("Expected missing lines file error, got %v", err)
	}
}
