package shared

import (
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// RankAlternateSuppliers returns the suppliers flagged as alternates, minus
// the excluded ids, best first.
// Ranking rules: higher reliability first, then shorter lead time, then id.
func RankAlternateSuppliers(suppliers []*entities.Supplier, exclude map[string]bool) []*entities.Supplier {
	ranked := make([]*entities.Supplier, 0, len(suppliers))
	for _, s := range suppliers {
		if s.AlternateSupplier && !exclude[s.SupplierID] {
			ranked = append(ranked, s)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ReliabilityPct != ranked[j].ReliabilityPct {
			return ranked[i].ReliabilityPct > ranked[j].ReliabilityPct
		}
		if ranked[i].LeadTimeDays != ranked[j].LeadTimeDays {
			return ranked[i].LeadTimeDays < ranked[j].LeadTimeDays
		}
		return ranked[i].SupplierID < ranked[j].SupplierID
	})
	return ranked
}

// SelectBestAlternateSupplier returns the top-ranked alternate, or nil if
// there is none
func SelectBestAlternateSupplier(suppliers []*entities.Supplier, exclude map[string]bool) *entities.Supplier {
	ranked := RankAlternateSuppliers(suppliers, exclude)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}
