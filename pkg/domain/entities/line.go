package entities

import "fmt"

// Line represents a production resource dedicated to one product family
type Line struct {
	LineID        LineID
	Name          string
	ProductID     ProductID
	DailyCapacity Quantity
	OEE           float64 // overall equipment effectiveness, 0..1
	MTBFHours     float64
	MTTRHours     float64
}

// NewLine creates a validated Line
func NewLine(lineID LineID, productID ProductID, dailyCapacity Quantity, oee float64) (*Line, error) {
	if string(lineID) == "" {
		return nil, fmt.Errorf("line id cannot be empty")
	}
	if string(productID) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if dailyCapacity < 0 {
		return nil, fmt.Errorf("daily capacity cannot be negative, got %d", dailyCapacity)
	}
	if oee < 0 || oee > 1 {
		return nil, fmt.Errorf("oee must be between 0 and 1, got %v", oee)
	}

	return &Line{
		LineID:        lineID,
		Name:          string(lineID),
		ProductID:     productID,
		DailyCapacity: dailyCapacity,
		OEE:           oee,
		MTBFHours:     100,
		MTTRHours:     2,
	}, nil
}

// EffectiveDailyCapacity is the nominal daily capacity scaled by OEE
func (l *Line) EffectiveDailyCapacity() float64 {
	return float64(l.DailyCapacity) * l.OEE
}

// GroupLinesByProduct indexes lines by the product they build, preserving input order
func GroupLinesByProduct(lines []*Line) map[ProductID][]*Line {
	byProduct := make(map[ProductID][]*Line)
	for _, ln := range lines {
		byProduct[ln.ProductID] = append(byProduct[ln.ProductID], ln)
	}
	return byProduct
}
