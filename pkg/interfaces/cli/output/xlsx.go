package output

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetInventory      = "Inventory"
	SheetKPIs           = "KPIs"
	SheetDelays         = "Order Delays"
	SheetSchedule       = "Schedule"
	SheetPurchaseOrders = "Purchase Orders"
	SheetEvents         = "Events"
)

// workbookSheet is one header row plus data rows
type workbookSheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// generateXLSXOutput writes plantsim_report.xlsx with one sheet per section
func generateXLSXOutput(report *Report, config Config) error {
	dir := config.OutputDir
	if dir == "" {
		dir = "."
	}
	filename, err := outputPath(dir, "plantsim_report.xlsx")
	if err != nil {
		return err
	}

	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to write XLSX file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "Workbook saved to: %s\n", filename)
	}
	return nil
}

// BuildWorkbook lays the report out as an Excel workbook. Inventory, KPIs
// and order delays always get a sheet; the other sections only when present.
func BuildWorkbook(report *Report) (*excelize.File, error) {
	sheets := []workbookSheet{
		inventorySheet(report),
		kpiSheet(report),
		delaySheet(report),
	}
	if len(report.Schedule) > 0 {
		sheets = append(sheets, scheduleSheet(report))
	}
	if len(report.PurchaseOrders) > 0 {
		sheets = append(sheets, purchaseOrderSheet(report))
	}
	if len(report.Events) > 0 {
		sheets = append(sheets, eventSheet(report))
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, s workbookSheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("write %s header: %w", s.name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", s.name, err)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", s.name, i+2, err)
		}
	}
	return nil
}

func inventorySheet(r *Report) workbookSheet {
	s := workbookSheet{
		name: SheetInventory,
		header: []interface{}{
			"Material", "Description", "Required", "Consumed", "Seed stock", "Current stock",
			"Remaining", "Unit cost", "Cost remaining", "PO", "PO qty", "PO ETA", "PO status",
		},
	}
	for _, row := range r.Inventory {
		unitCost, _ := row.UnitCost.Float64()
		remaining, _ := row.TotalCostRemaining.Float64()
		values := []interface{}{
			string(row.MaterialID), row.Description, int64(row.Required), int64(row.Consumed), int64(row.SeedStock),
			int64(row.CurrentStock), int64(row.RemainingRequirement), unitCost, remaining,
		}
		if row.PO != nil {
			values = append(values, row.PO.POID, int64(row.PO.Quantity), formatDate(row.PO.ETA), string(row.PO.Status))
		} else {
			values = append(values, "", nil, "", "")
		}
		s.rows = append(s.rows, values)
	}
	return s
}

func kpiSheet(r *Report) workbookSheet {
	s := workbookSheet{name: SheetKPIs, header: []interface{}{"KPI", "Value", "Unit", "Target", "Status"}}
	for _, k := range r.KPIs {
		s.rows = append(s.rows, []interface{}{k.Name, k.Value, k.Unit, k.Target, string(k.Status)})
	}
	return s
}

func delaySheet(r *Report) workbookSheet {
	s := workbookSheet{
		name: SheetDelays,
		header: []interface{}{
			"Order", "Product", "Qty", "Dispatch", "Planned completion", "Delay days",
			"Status", "Allocated", "Shortfall", "Root causes",
		},
	}
	for _, d := range r.Delays {
		var delay interface{}
		if d.DelayDays != nil {
			delay = *d.DelayDays
		}
		causes := make([]string, 0, len(d.RootCauses))
		for _, c := range d.RootCauses {
			causes = append(causes, string(c))
		}
		s.rows = append(s.rows, []interface{}{
			d.OrderID, string(d.ProductID), int64(d.Quantity), formatDate(d.DispatchDate), formatDate(d.PlannedCompletion),
			delay, string(d.Status), int64(d.AllocatedQty), int64(d.ShortfallQty), strings.Join(causes, ", "),
		})
	}
	return s
}

func scheduleSheet(r *Report) workbookSheet {
	s := workbookSheet{name: SheetSchedule, header: []interface{}{"Line", "Plan", "Product", "Qty", "Start", "End"}}
	for _, item := range r.Schedule {
		s.rows = append(s.rows, []interface{}{
			string(item.LineID), item.PlanID, string(item.ProductID), int64(item.PlannedQty),
			item.StartTS.Format("2006-01-02 15:04"), item.EndTS.Format("2006-01-02 15:04"),
		})
	}
	return s
}

func purchaseOrderSheet(r *Report) workbookSheet {
	s := workbookSheet{name: SheetPurchaseOrders, header: []interface{}{"PO", "Material", "Supplier", "Qty", "Ordered", "ETA", "Status"}}
	for _, po := range r.PurchaseOrders {
		s.rows = append(s.rows, []interface{}{
			po.POID, string(po.MaterialID), po.SupplierID, int64(po.Quantity),
			formatDate(po.OrderDate), formatDate(po.ETA), string(po.Status),
		})
	}
	return s
}

func eventSheet(r *Report) workbookSheet {
	s := workbookSheet{name: SheetEvents, header: []interface{}{"Time", "Type", "Stream", "Message", "ID"}}
	for _, e := range r.Events {
		s.rows = append(s.rows, []interface{}{e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Stream, e.Message, e.ID})
	}
	return s
}
