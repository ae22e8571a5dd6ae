package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	amberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	defaultStyle = lipgloss.NewStyle()
)

// levelStyle colors KPI levels and delay statuses
func levelStyle(level string) lipgloss.Style {
	switch level {
	case string(analytics.Green), string(analytics.OnTime), string(analytics.PriorityLow):
		return greenStyle
	case string(analytics.Amber), string(analytics.AtRisk), string(analytics.PriorityMedium):
		return amberStyle
	case string(analytics.Red), string(analytics.Delayed), string(analytics.NotPlanned), string(analytics.PriorityHigh):
		return redStyle
	default:
		return defaultStyle
	}
}

// renderTable draws a bordered table; statusCol (or -1) is colored by level
func renderTable(headers []string, rows [][]string, statusCol int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				return levelStyle(rows[row][col]).Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

type section struct {
	title string
	body  string
}

// generateTextOutput renders every non-empty section as a styled table
func generateTextOutput(report *Report, config Config) error {
	var sections []section
	add := func(title, body string) {
		if body != "" {
			sections = append(sections, section{title: title, body: body})
		}
	}

	add("Planning pass", planSection(report))
	add("Lines", linesSection(report))
	add("Schedule", scheduleSection(report))
	add("Inventory", inventorySection(report))
	add("Material requirements", requirementsSection(report))
	add("KPIs", kpiSection(report))
	add("Order delays", delaySection(report))
	add("Recommendations", recommendationSection(report))
	add("Order timeline", timelineSection(report))
	add("Purchase orders", purchaseOrderSection(report))
	add("Events", eventSection(report, config.Verbose))

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("plantsim %s", report.Action)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s", report.GeneratedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")
	for _, s := range sections {
		b.WriteString(titleStyle.Render(s.title))
		b.WriteString("\n")
		b.WriteString(s.body)
		b.WriteString("\n\n")
	}

	_, err := fmt.Fprint(config.writer(), b.String())
	return err
}

func planSection(r *Report) string {
	if r.Plan == nil {
		return ""
	}
	ids := make([]string, 0, len(r.Plan.Allocated))
	for id := range r.Plan.Allocated {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, fmt.Sprintf("%d", r.Plan.Allocated[id])})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (new: %t), %d order(s) planned, %d already planned, %d held\n",
		r.Plan.RunID, r.Plan.NewRun, len(ids), len(r.Plan.Skipped), len(r.Plan.Held))
	if len(r.Plan.Held) > 0 {
		fmt.Fprintf(&b, "Held: %s\n", strings.Join(r.Plan.Held, ", "))
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"Order", "Allocated"}, rows, -1))
	}
	return strings.TrimRight(b.String(), "\n")
}

func linesSection(r *Report) string {
	if len(r.Lines) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		rows = append(rows, []string{string(l.LineID), fmt.Sprintf("%d", l.UnitsCompleted), fmt.Sprintf("%.2f", l.EnergyKWh)})
	}
	body := renderTable([]string{"Line", "Units completed", "Energy kWh"}, rows, -1)
	if r.Ticks > 0 {
		body = fmt.Sprintf("%d tick(s)\n%s", r.Ticks, body)
	}
	return body
}

func scheduleSection(r *Report) string {
	if len(r.Schedule) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.Schedule))
	for _, item := range r.Schedule {
		rows = append(rows, []string{
			string(item.LineID),
			item.PlanID,
			fmt.Sprintf("%d", item.PlannedQty),
			item.StartTS.Format("2006-01-02 15:04"),
			item.EndTS.Format("2006-01-02 15:04"),
		})
	}
	return renderTable([]string{"Line", "Plan", "Qty", "Start", "End"}, rows, -1)
}

func inventorySection(r *Report) string {
	if len(r.Inventory) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.Inventory))
	for _, row := range r.Inventory {
		po := "-"
		if row.PO != nil {
			po = fmt.Sprintf("%s %d @ %s (%s)", row.PO.POID, row.PO.Quantity, formatDate(row.PO.ETA), row.PO.Status)
		}
		rows = append(rows, []string{
			string(row.MaterialID),
			row.Description,
			fmt.Sprintf("%d", row.Required),
			fmt.Sprintf("%d", row.Consumed),
			fmt.Sprintf("%d", row.CurrentStock),
			fmt.Sprintf("%d", row.RemainingRequirement),
			row.TotalCostRemaining.StringFixed(2),
			po,
		})
	}
	return renderTable([]string{"Material", "Description", "Required", "Consumed", "Stock", "Remaining", "Cost remaining", "Open PO"}, rows, -1)
}

func requirementsSection(r *Report) string {
	if len(r.Requirements) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		rows = append(rows, []string{
			string(req.MaterialID),
			fmt.Sprintf("%d", req.Required),
			fmt.Sprintf("%d", req.CurrentStock),
			fmt.Sprintf("%d", req.RemainingRequirement),
		})
	}
	return renderTable([]string{"Material", "Required", "Stock", "Remaining"}, rows, -1)
}

func kpiSection(r *Report) string {
	if len(r.KPIs) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.KPIs))
	for _, k := range r.KPIs {
		rows = append(rows, []string{k.Name, fmt.Sprintf("%.2f %s", k.Value, k.Unit), fmt.Sprintf("%.0f", k.Target), string(k.Status)})
	}
	return renderTable([]string{"KPI", "Value", "Target", "Status"}, rows, 3)
}

func delaySection(r *Report) string {
	if len(r.Delays) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.Delays))
	for _, d := range r.Delays {
		causes := make([]string, 0, len(d.RootCauses))
		for _, c := range d.RootCauses {
			causes = append(causes, string(c))
		}
		rows = append(rows, []string{
			d.OrderID,
			string(d.ProductID),
			fmt.Sprintf("%d", d.Quantity),
			formatDate(d.DispatchDate),
			formatDate(d.PlannedCompletion),
			formatDelay(d.DelayDays),
			string(d.Status),
			fmt.Sprintf("%d", d.AllocatedQty),
			fmt.Sprintf("%d", d.ShortfallQty),
			strings.Join(causes, ", "),
		})
	}
	return renderTable([]string{"Order", "Product", "Qty", "Dispatch", "Completion", "Delay", "Status", "Allocated", "Shortfall", "Causes"}, rows, 6)
}

func recommendationSection(r *Report) string {
	var rows [][]string
	for _, rep := range r.Recommendations {
		for _, rec := range rep.Recommendations {
			rows = append(rows, []string{rep.OrderID, string(rec.Priority), string(rec.Category), rec.Action, rec.Details})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return renderTable([]string{"Order", "Priority", "Category", "Action", "Details"}, rows, 1)
}

func timelineSection(r *Report) string {
	tl := r.Timeline
	if tl == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s: %d x %s, dispatch %s, status %s\n",
		tl.Order.OrderID, tl.Order.Quantity, tl.Order.ProductID, formatDate(tl.Order.DispatchDate), tl.Order.Status)
	if tl.Progress != nil {
		fmt.Fprintf(&b, "Progress: %d completed, %d remaining, estimated completion %s\n",
			tl.Progress.CompletedQty, tl.Progress.RemainingQty, formatDate(tl.Progress.EstimatedCompletionDate))
	}

	if len(tl.Items) > 0 {
		rows := make([][]string, 0, len(tl.Items))
		for _, item := range tl.Items {
			rows = append(rows, []string{
				string(item.LineID),
				fmt.Sprintf("%d", item.AllocatedQty),
				item.Start.Format("2006-01-02 15:04"),
				item.End.Format("2006-01-02 15:04"),
				string(item.Status),
			})
		}
		b.WriteString(renderTable([]string{"Line", "Qty", "Start", "End", "Status"}, rows, -1))
		b.WriteString("\n")
	}

	if len(tl.Materials) > 0 {
		rows := make([][]string, 0, len(tl.Materials))
		for _, m := range tl.Materials {
			po := "-"
			if m.PO != nil {
				po = fmt.Sprintf("%s @ %s", m.PO.POID, formatDate(m.PO.ETA))
			}
			rows = append(rows, []string{string(m.MaterialID), fmt.Sprintf("%d", m.Required), fmt.Sprintf("%d", m.CurrentStock), po})
		}
		b.WriteString(renderTable([]string{"Material", "Required", "Stock", "Open PO"}, rows, -1))
	}
	return strings.TrimRight(b.String(), "\n")
}

func purchaseOrderSection(r *Report) string {
	if len(r.PurchaseOrders) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(r.PurchaseOrders))
	for _, po := range r.PurchaseOrders {
		rows = append(rows, []string{
			po.POID,
			string(po.MaterialID),
			po.SupplierID,
			fmt.Sprintf("%d", po.Quantity),
			formatDate(po.OrderDate),
			formatDate(po.ETA),
			string(po.Status),
		})
	}
	return renderTable([]string{"PO", "Material", "Supplier", "Qty", "Ordered", "ETA", "Status"}, rows, -1)
}

// eventSection lists the newest events; all of them when verbose
func eventSection(r *Report, verbose bool) string {
	evts := r.Events
	if len(evts) == 0 {
		return ""
	}
	const brief = 15
	var b strings.Builder
	if !verbose && len(evts) > brief {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("showing last %d of %d (use -verbose for all)", brief, len(evts))))
		evts = evts[len(evts)-brief:]
	}
	rows := make([][]string, 0, len(evts))
	for _, e := range evts {
		rows = append(rows, []string{e.Timestamp.Format("15:04:05"), e.Type, e.Message})
	}
	b.WriteString(renderTable([]string{"Time", "Type", "Message"}, rows, -1))
	return b.String()
}
