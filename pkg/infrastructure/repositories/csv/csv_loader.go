package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// Scenario file names inside a scenario directory
const (
	LinesFile             = "lines.csv"
	BOMFile               = "bom.csv"
	InventoryFile         = "inventory.csv"
	SuppliersFile         = "suppliers.csv"
	OrdersFile            = "orders.csv"
	MachineParametersFile = "machine_parameters.csv"
)

var (
	linesHeader     = []string{"line_id", "name", "product_id", "daily_capacity", "oee", "mtbf_hours", "mttr_hours"}
	bomHeader       = []string{"product_id", "material_id", "quantity_per_unit"}
	inventoryHeader = []string{"material_id", "description", "category", "reorder_point", "safety_stock", "lead_time_days", "supplier_id", "current_stock", "unit_cost"}
	suppliersHeader = []string{"supplier_id", "name", "location", "lead_time_days", "reliability_pct", "alternate_supplier"}
	ordersHeader    = []string{"order_id", "product_id", "quantity", "start_date", "dispatch_date", "priority", "is_spike"}
	machineHeader   = []string{"machine_id", "line_id", "parameter", "threshold", "current_value", "oee_pct"}
)

// Scenario is the master data and order book of one plant
type Scenario struct {
	Lines             []*entities.Line
	BOM               []*entities.BOMItem
	Inventory         []*entities.InventoryItem
	Suppliers         []*entities.Supplier
	Orders            []*entities.Order
	MachineParameters []*entities.MachineParameter
}

// Load writes the scenario into a unit of work
func (s *Scenario) Load(uow repositories.UnitOfWork) error {
	if err := uow.Lines().LoadLines(s.Lines); err != nil {
		return fmt.Errorf("load lines: %w", err)
	}
	if err := uow.BOM().LoadBOMItems(s.BOM); err != nil {
		return fmt.Errorf("load bom: %w", err)
	}
	if err := uow.Inventory().LoadInventoryItems(s.Inventory); err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	if err := uow.Suppliers().LoadSuppliers(s.Suppliers); err != nil {
		return fmt.Errorf("load suppliers: %w", err)
	}
	if err := uow.Simulation().LoadMachineParameters(s.MachineParameters); err != nil {
		return fmt.Errorf("load machine parameters: %w", err)
	}
	for _, o := range s.Orders {
		if err := uow.Orders().SaveOrder(o); err != nil {
			return fmt.Errorf("save order %s: %w", o.OrderID, err)
		}
	}
	return nil
}

// Loader reads plant scenarios from CSV files. Order dates may be absolute
// (YYYY-MM-DD) or relative to the loader's reference date ("+9").
type Loader struct {
	today time.Time
}

// NewLoader creates a loader that resolves relative dates against today
func NewLoader(today time.Time) *Loader {
	return &Loader{today: entities.DateOf(today)}
}

// LoadScenario reads every scenario file from dir. Orders and machine
// parameters are optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	if s.Lines, err = l.LoadLines(filepath.Join(dir, LinesFile)); err != nil {
		return nil, err
	}
	if s.BOM, err = l.LoadBOM(filepath.Join(dir, BOMFile)); err != nil {
		return nil, err
	}
	if s.Inventory, err = l.LoadInventory(filepath.Join(dir, InventoryFile)); err != nil {
		return nil, err
	}
	if s.Suppliers, err = l.LoadSuppliers(filepath.Join(dir, SuppliersFile)); err != nil {
		return nil, err
	}
	if s.Orders, err = l.LoadOrders(filepath.Join(dir, OrdersFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if s.MachineParameters, err = l.LoadMachineParameters(filepath.Join(dir, MachineParametersFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return &s, nil
}

// LoadLines loads production lines from a CSV file
func (l *Loader) LoadLines(filename string) ([]*entities.Line, error) {
	records, err := readRecords(filename, "lines", linesHeader, true)
	if err != nil {
		return nil, err
	}

	var lines []*entities.Line
	for i, record := range records {
		p := &rowParser{record: record}
		line, err := entities.NewLine(
			entities.LineID(record[0]),
			entities.ProductID(record[2]),
			entities.Quantity(p.int64(3, "daily_capacity")),
			p.float(4, "oee"),
		)
		if p.err != nil {
			return nil, fmt.Errorf("lines CSV row %d: %w", i+2, p.err)
		}
		if err != nil {
			return nil, fmt.Errorf("lines CSV row %d: %w", i+2, err)
		}
		if record[1] != "" {
			line.Name = record[1]
		}
		if record[5] != "" {
			line.MTBFHours = p.float(5, "mtbf_hours")
		}
		if record[6] != "" {
			line.MTTRHours = p.float(6, "mttr_hours")
		}
		if p.err != nil {
			return nil, fmt.Errorf("lines CSV row %d: %w", i+2, p.err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// LoadBOM loads BOM rows from a CSV file in file order. Repeated
// product/material pairs are kept so validation can reject them.
func (l *Loader) LoadBOM(filename string) ([]*entities.BOMItem, error) {
	records, err := readRecords(filename, "BOM", bomHeader, true)
	if err != nil {
		return nil, err
	}

	items := make([]*entities.BOMItem, 0, len(records))
	for i, record := range records {
		p := &rowParser{record: record}
		qty := p.int64(2, "quantity_per_unit")
		if p.err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, p.err)
		}
		item, err := entities.NewBOMItem(entities.ProductID(record[0]), entities.MaterialID(record[1]), entities.Quantity(qty))
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadInventory loads material master rows from a CSV file
func (l *Loader) LoadInventory(filename string) ([]*entities.InventoryItem, error) {
	records, err := readRecords(filename, "inventory", inventoryHeader, true)
	if err != nil {
		return nil, err
	}

	var items []*entities.InventoryItem
	for i, record := range records {
		p := &rowParser{record: record}
		reorderPoint := p.int64(3, "reorder_point")
		safetyStock := p.int64(4, "safety_stock")
		leadTime := p.int(5, "lead_time_days")
		stock := p.int64(7, "current_stock")
		if p.err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, p.err)
		}
		unitCost, err := decimal.NewFromString(strings.TrimSpace(record[8]))
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: invalid unit_cost: %s", i+2, record[8])
		}

		item, err := entities.NewInventoryItem(entities.MaterialID(record[0]), record[6], entities.Quantity(stock), unitCost)
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		item.Description = record[1]
		item.Category = record[2]
		item.ReorderPoint = entities.Quantity(reorderPoint)
		item.SafetyStock = entities.Quantity(safetyStock)
		item.LeadTimeDays = leadTime
		items = append(items, item)
	}
	return items, nil
}

// LoadSuppliers loads suppliers from a CSV file
func (l *Loader) LoadSuppliers(filename string) ([]*entities.Supplier, error) {
	records, err := readRecords(filename, "suppliers", suppliersHeader, true)
	if err != nil {
		return nil, err
	}

	var suppliers []*entities.Supplier
	for i, record := range records {
		p := &rowParser{record: record}
		leadTime := p.int(3, "lead_time_days")
		reliability := p.float(4, "reliability_pct")
		alternate := p.bool(5, "alternate_supplier")
		if p.err != nil {
			return nil, fmt.Errorf("suppliers CSV row %d: %w", i+2, p.err)
		}

		supplier, err := entities.NewSupplier(record[0], record[1], leadTime)
		if err != nil {
			return nil, fmt.Errorf("suppliers CSV row %d: %w", i+2, err)
		}
		supplier.Location = record[2]
		supplier.ReliabilityPct = reliability
		supplier.AlternateSupplier = alternate
		suppliers = append(suppliers, supplier)
	}
	return suppliers, nil
}

// LoadOrders loads manufacturing orders from a CSV file
func (l *Loader) LoadOrders(filename string) ([]*entities.Order, error) {
	records, err := readRecords(filename, "orders", ordersHeader, false)
	if err != nil {
		return nil, err
	}

	var orders []*entities.Order
	for i, record := range records {
		p := &rowParser{record: record}
		qty := p.int64(2, "quantity")
		start := l.date(p, 3, "start_date")
		dispatch := l.date(p, 4, "dispatch_date")
		priority := 0
		if record[5] != "" {
			priority = p.int(5, "priority")
		}
		spike := p.bool(6, "is_spike")
		if p.err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", i+2, p.err)
		}

		order, err := entities.NewOrder(record[0], entities.ProductID(record[1]), entities.Quantity(qty), start, dispatch, priority, spike)
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", i+2, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// LoadMachineParameters loads monitored machine readings from a CSV file
func (l *Loader) LoadMachineParameters(filename string) ([]*entities.MachineParameter, error) {
	records, err := readRecords(filename, "machine parameters", machineHeader, false)
	if err != nil {
		return nil, err
	}

	var params []*entities.MachineParameter
	for i, record := range records {
		p := &rowParser{record: record}
		param := &entities.MachineParameter{
			ID:           int64(i + 1),
			MachineID:    record[0],
			LineID:       entities.LineID(record[1]),
			Parameter:    record[2],
			Threshold:    p.float(3, "threshold"),
			CurrentValue: p.float(4, "current_value"),
			OEEPct:       p.float(5, "oee_pct"),
		}
		if p.err != nil {
			return nil, fmt.Errorf("machine parameters CSV row %d: %w", i+2, p.err)
		}
		if param.MachineID == "" {
			return nil, fmt.Errorf("machine parameters CSV row %d: machine id cannot be empty", i+2)
		}
		params = append(params, param)
	}
	return params, nil
}

// date parses an absolute or "+N" relative date; empty means unset
func (l *Loader) date(p *rowParser, col int, name string) time.Time {
	s := strings.TrimSpace(p.record[col])
	if s == "" || p.err != nil {
		return time.Time{}
	}
	if strings.HasPrefix(s, "+") {
		days, err := strconv.Atoi(s[1:])
		if err != nil {
			p.err = fmt.Errorf("invalid %s: %s", name, s)
			return time.Time{}
		}
		return entities.AddDays(l.today, days)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		p.err = fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD or +N)", name, s)
		return time.Time{}
	}
	return t
}

// Helper functions for parsing CSV records

// readRecords returns the data rows of a CSV file after checking its header
// and column counts. required files must hold at least one data row.
func readRecords(filename, name string, expectedHeader []string, required bool) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", name, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) == 0 || (required && len(records) < 2) {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", name)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

// rowParser keeps the first conversion error of a row
type rowParser struct {
	record []string
	err    error
}

func (p *rowParser) int64(col int, name string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(p.record[col]), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %s", name, p.record[col])
	}
	return v
}

func (p *rowParser) int(col int, name string) int {
	return int(p.int64(col, name))
}

func (p *rowParser) float(col int, name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.record[col]), 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %s", name, p.record[col])
	}
	return v
}

func (p *rowParser) bool(col int, name string) bool {
	if p.err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.record[col])) {
	case "yes", "true", "1", "y":
		return true
	case "no", "false", "0", "n", "":
		return false
	default:
		p.err = fmt.Errorf("invalid %s: %s (expected yes/no)", name, p.record[col])
		return false
	}
}
