package output

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
	"github.com/vsinha/plantsim/pkg/application/services/planning"
	"github.com/vsinha/plantsim/pkg/domain/entities"
)

var generatedAt = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

func mustCreatePlanItem(planID, lineID string, qty entities.Quantity, startHour, hours int) *entities.PlanItem {
	start := generatedAt.Add(time.Duration(startHour) * time.Hour)
	item, err := entities.NewPlanItem(planID, entities.LineID(lineID), "P-HE", qty, start, start.Add(time.Duration(hours)*time.Hour))
	if err != nil {
		panic(err)
	}
	return item
}

func sampleReport() *Report {
	delay := 2
	return &Report{
		Action:      "report",
		GeneratedAt: generatedAt,
		Plan: &planning.PassResult{
			RunID:     "RUN-1",
			NewRun:    true,
			Allocated: map[string]entities.Quantity{"ORD-HE-001": 285},
		},
		Schedule: []*entities.PlanItem{
			mustCreatePlanItem("PLAN-RUN-1-ORD-HE-001", "L1", 150, 0, 72),
			mustCreatePlanItem("PLAN-RUN-1-ORD-HE-001", "L2", 135, 0, 72),
		},
		Inventory: []analytics.InventoryRow{{
			MaterialID:           "M014",
			Description:          "Chip",
			Required:             3000,
			CurrentStock:         1800,
			SeedStock:            2000,
			Consumed:             200,
			RemainingRequirement: 1200,
			UnitCost:             decimal.RequireFromString("12.50"),
			TotalCostRemaining:   decimal.RequireFromString("15000"),
			PO: &analytics.OpenPO{
				POID:     "PO-M014-2025-03-03",
				Quantity: 1200,
				ETA:      generatedAt.AddDate(0, 0, 3),
				Status:   entities.POPlaced,
			},
		}},
		KPIs: []analytics.KPI{
			{Name: "Material Availability", Value: 87.5, Unit: "%", Target: 95, Status: analytics.Amber},
			{Name: "Machine Health Index", Value: 96, Unit: "%", Target: 90, Status: analytics.Green},
		},
		Delays: []analytics.OrderDelay{{
			OrderID:      "ORD-HE-001",
			ProductID:    "P-HE",
			Quantity:     500,
			DispatchDate: generatedAt.AddDate(0, 0, 3),
			DelayDays:    &delay,
			Status:       analytics.Delayed,
			RootCauses:   []analytics.RootCause{analytics.CauseCapacityShortfall},
			AllocatedQty: 285,
			ShortfallQty: 215,
		}},
		Recommendations: []*analytics.RecommendationReport{{
			OrderID: "ORD-HE-001",
			Status:  analytics.Delayed,
			Recommendations: []analytics.Recommendation{
				{Priority: analytics.PriorityHigh, Category: analytics.CategoryCapacity, Action: "Add an overtime shift", Details: "215 units short"},
			},
		}},
		Events: []EventView{
			{ID: "EVT-1", Type: "CAPACITY_SHORTFALL", Stream: "ORD-HE-001", Message: "capacity short", Timestamp: generatedAt},
		},
	}
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleReport(), Config{Format: FormatText, Writer: &buf}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"plantsim report",
		"Run RUN-1",
		"ORD-HE-001",
		"Material Availability",
		"AMBER",
		"PO-M014-2025-03-03",
		"15000.00",
		"CAPACITY_SHORTFALL",
		"Add an overtime shift",
		"L2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text output to contain %q", want)
		}
	}
	if strings.Contains(out, "Order timeline") {
		t.Errorf("Empty timeline section should not be rendered")
	}
}

func TestGenerate_TextTruncatesEventsUnlessVerbose(t *testing.T) {
	report := &Report{Action: "simulate", GeneratedAt: generatedAt}
	for i := 0; i < 20; i++ {
		report.Events = append(report.Events, EventView{Type: "ORDER_AT_RISK", Message: "msg", Timestamp: generatedAt})
	}

	var brief, verbose bytes.Buffer
	if err := Generate(report, Config{Writer: &brief}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := Generate(report, Config{Writer: &verbose, Verbose: true}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(brief.String(), "showing last 15 of 20") {
		t.Errorf("Expected truncation notice in brief output")
	}
	if got := strings.Count(verbose.String(), "ORDER_AT_RISK"); got != 20 {
		t.Errorf("Expected all 20 events when verbose, got %d", got)
	}
}

func TestGenerate_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleReport(), Config{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var decoded struct {
		Action string            `json:"action"`
		KPIs   []json.RawMessage `json:"kpis"`
		Events []EventView       `json:"events"`
		Lines  []LineSummary     `json:"lines"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Action != "report" || len(decoded.KPIs) != 2 || len(decoded.Events) != 1 {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}
	if decoded.Lines != nil {
		t.Errorf("Empty sections should be omitted, got lines %+v", decoded.Lines)
	}
}

func TestBuildWorkbook(t *testing.T) {
	f, err := BuildWorkbook(sampleReport())
	if err != nil {
		t.Fatalf("BuildWorkbook failed: %v", err)
	}
	defer f.Close()

	want := []string{SheetInventory, SheetKPIs, SheetDelays, SheetSchedule, SheetEvents}
	got := f.GetSheetList()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected sheets %v, got %v", want, got)
	}

	rows, err := f.GetRows(SheetKPIs)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Material Availability" || rows[1][4] != "AMBER" {
		t.Errorf("Unexpected KPI rows: %v", rows)
	}

	rows, err = f.GetRows(SheetInventory)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if rows[1][0] != "M014" || rows[1][9] != "PO-M014-2025-03-03" {
		t.Errorf("Unexpected inventory row: %v", rows[1])
	}

	rows, err = f.GetRows(SheetDelays)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if rows[1][5] != "2" || rows[1][9] != "CAPACITY_SHORTFALL" {
		t.Errorf("Unexpected delay row: %v", rows[1])
	}
}

func TestGenerate_XLSXWritesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(&Report{Action: "report", GeneratedAt: generatedAt}, Config{Format: FormatXLSX, OutputDir: dir}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "plantsim_report.xlsx"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 {
		t.Errorf("Expected the three fixed sheets for an empty report, got %v", got)
	}
}

func TestGanttChart(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer
	if err := Generate(report, Config{Format: FormatSVG, Writer: &buf}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	svg := buf.String()

	if !strings.HasPrefix(svg, "<svg") {
		t.Fatalf("Expected SVG output, got %q", svg[:20])
	}
	if strings.Count(svg, `class="plan-bar"`) != 2 {
		t.Errorf("Expected 2 plan bars")
	}
	for _, want := range []string{">L1<", ">L2<", "Qty: 150", "PLAN-RUN-1-ORD-HE-001"} {
		if !strings.Contains(svg, want) {
			t.Errorf("Expected SVG to contain %q", want)
		}
	}

	empty := NewGanttChart(nil).GenerateSVG(nil)
	if !strings.Contains(empty, "No Plan Items Scheduled") {
		t.Errorf("Expected empty chart placeholder")
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	if err := Generate(sampleReport(), Config{Format: "pdf"}); err == nil {
		t.Fatal("Expected an error for an unsupported format")
	}
}
