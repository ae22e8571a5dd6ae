package output

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// GanttChart lays out a line schedule as an SVG Gantt chart
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar represents one plan item on its line's row
type GanttBar struct {
	LineID    entities.LineID
	PlanID    string
	ProductID entities.ProductID
	Quantity  entities.Quantity
	Start     time.Time
	End       time.Time
	X         int
	Width     int
	Color     string
}

// barPalette colors plans so consecutive orders on a line stay distinguishable
var barPalette = []string{"#4CAF50", "#2196F3", "#FF9800", "#9C27B0", "#009688", "#795548"}

// NewGanttChart sizes a chart for the schedule's lines and time span
func NewGanttChart(items []*entities.PlanItem) *GanttChart {
	if len(items) == 0 {
		return &GanttChart{
			Width:        800,
			Height:       200,
			MarginLeft:   150,
			MarginTop:    50,
			MarginRight:  50,
			MarginBottom: 50,
			RowHeight:    25,
		}
	}

	startTime := items[0].StartTS
	endTime := items[0].EndTS
	lines := make(map[entities.LineID]bool)
	for _, item := range items {
		if item.StartTS.Before(startTime) {
			startTime = item.StartTS
		}
		if item.EndTS.After(endTime) {
			endTime = item.EndTS
		}
		lines[item.LineID] = true
	}

	// 10% padding, at least an hour so a single short item still has width
	padding := time.Duration(float64(endTime.Sub(startTime)) * 0.1)
	if padding < time.Hour {
		padding = time.Hour
	}

	rowHeight := 30
	return &GanttChart{
		Width:        1200,
		Height:       len(lines)*rowHeight + 180,
		MarginLeft:   120,
		MarginTop:    60,
		MarginRight:  220,
		MarginBottom: 80,
		RowHeight:    rowHeight,
		StartTime:    startTime.Add(-padding),
		EndTime:      endTime.Add(padding),
	}
}

// GenerateSVG renders the schedule
func (gc *GanttChart) GenerateSVG(items []*entities.PlanItem) string {
	if len(items) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.line-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.plan-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.plan-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">Line Schedule - BASELINE</text>`, gc.Width/2))

	colors := gc.planColors(items)
	rows := gc.organizeBars(gc.createBars(items, colors))

	gc.drawTimeAxis(&svg)
	gc.drawTimeGrid(&svg, len(rows))
	gc.drawLineRows(&svg, rows)
	gc.drawLegend(&svg, colors)

	svg.WriteString(`</svg>`)
	return svg.String()
}

// planColors assigns palette colors to plans in first-seen order
func (gc *GanttChart) planColors(items []*entities.PlanItem) map[string]string {
	colors := make(map[string]string)
	var order []string
	for _, item := range items {
		if _, ok := colors[item.PlanID]; !ok {
			colors[item.PlanID] = ""
			order = append(order, item.PlanID)
		}
	}
	for i, planID := range order {
		colors[planID] = barPalette[i%len(barPalette)]
	}
	return colors
}

// x maps a timestamp onto the chart's horizontal axis
func (gc *GanttChart) x(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

// createBars converts plan items to bars
func (gc *GanttChart) createBars(items []*entities.PlanItem, colors map[string]string) []GanttBar {
	bars := make([]GanttBar, 0, len(items))
	for _, item := range items {
		x := gc.x(item.StartTS)
		width := gc.x(item.EndTS) - x
		if width < 2 {
			width = 2
		}
		bars = append(bars, GanttBar{
			LineID:    item.LineID,
			PlanID:    item.PlanID,
			ProductID: item.ProductID,
			Quantity:  item.PlannedQty,
			Start:     item.StartTS,
			End:       item.EndTS,
			X:         x,
			Width:     width,
			Color:     colors[item.PlanID],
		})
	}
	return bars
}

// organizeBars groups bars by line, each row sorted by start time
func (gc *GanttChart) organizeBars(bars []GanttBar) map[entities.LineID][]GanttBar {
	rows := make(map[entities.LineID][]GanttBar)
	for _, bar := range bars {
		rows[bar.LineID] = append(rows[bar.LineID], bar)
	}
	for lineID := range rows {
		sort.Slice(rows[lineID], func(i, j int) bool {
			return rows[lineID][i].Start.Before(rows[lineID][j].Start)
		})
	}
	return rows
}

// axisInterval picks hourly, 6-hourly or daily ticks for the chart's span
func (gc *GanttChart) axisInterval() (time.Duration, string) {
	hours := int(math.Ceil(gc.EndTime.Sub(gc.StartTime).Hours()))
	switch {
	case hours <= 24:
		return time.Hour, "15:04"
	case hours <= 96:
		return 6 * time.Hour, "Jan 2 15:04"
	default:
		return entities.Day, "Jan 2"
	}
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder) {
	interval, labelFormat := gc.axisInterval()

	for t := gc.StartTime.Truncate(interval); t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.x(t)
		if x >= gc.MarginLeft && x <= gc.Width-gc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
				x, gc.Height-gc.MarginBottom+15, t.Format(labelFormat)))
		}
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		gc.MarginLeft, gc.Height-gc.MarginBottom, gc.Width-gc.MarginRight, gc.Height-gc.MarginBottom))
}

// rowHeightFor keeps rows clear of the time axis
func (gc *GanttChart) rowHeightFor(numRows int) int {
	maxRowY := gc.Height - gc.MarginBottom - 30
	h := (maxRowY - gc.MarginTop) / numRows
	if h > gc.RowHeight {
		h = gc.RowHeight
	}
	return h
}

func (gc *GanttChart) drawTimeGrid(svg *strings.Builder, numRows int) {
	interval, _ := gc.axisInterval()
	gridBottom := gc.MarginTop + numRows*gc.rowHeightFor(numRows)

	for t := gc.StartTime.Truncate(interval); t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.x(t)
		if x >= gc.MarginLeft && x <= gc.Width-gc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
				x, gc.MarginTop, x, gridBottom))
		}
	}
}

func (gc *GanttChart) drawLineRows(svg *strings.Builder, rows map[entities.LineID][]GanttBar) {
	lineIDs := make([]entities.LineID, 0, len(rows))
	for id := range rows {
		lineIDs = append(lineIDs, id)
	}
	sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })

	rowHeight := gc.rowHeightFor(len(lineIDs))
	for i, lineID := range lineIDs {
		y := gc.MarginTop + i*rowHeight

		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="line-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+rowHeight/2+4, html.EscapeString(string(lineID))))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+rowHeight, gc.Width-gc.MarginRight, y+rowHeight))

		for _, bar := range rows[lineID] {
			gc.drawBar(svg, bar, y, rowHeight)
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int, rowHeight int) {
	barHeight := rowHeight - 4
	barY := rowY + 2

	svg.WriteString(`<g>`)
	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="plan-bar"/>`,
		bar.X, barY, bar.Width, barHeight, bar.Color))

	if bar.Width > 40 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="plan-text" text-anchor="middle">%d</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, bar.Quantity))
	}

	svg.WriteString(fmt.Sprintf(`<title>%s</title>`, html.EscapeString(fmt.Sprintf(
		"Plan: %s, Product: %s, Qty: %d, Start: %s, End: %s",
		bar.PlanID, bar.ProductID, bar.Quantity,
		bar.Start.Format("2006-01-02 15:04"), bar.End.Format("2006-01-02 15:04"),
	))))
	svg.WriteString(`</g>`)
}

// drawLegend lists plans with their colors, sorted by plan id
func (gc *GanttChart) drawLegend(svg *strings.Builder, colors map[string]string) {
	planIDs := make([]string, 0, len(colors))
	for id := range colors {
		planIDs = append(planIDs, id)
	}
	sort.Strings(planIDs)

	legendX := gc.Width - gc.MarginRight + 20
	legendY := gc.MarginTop
	height := 25 + len(planIDs)*14

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="190" height="%d" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY, height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="line-label" font-weight="bold">Plans</text>`,
		legendX+10, legendY+15))

	for i, planID := range planIDs {
		itemY := legendY + 25 + i*14
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY, colors[planID]))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`,
			legendX+30, itemY+8, html.EscapeString(planID)))
	}
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Plan Items Scheduled</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}
