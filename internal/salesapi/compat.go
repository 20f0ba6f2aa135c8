package salesapi

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
)

// timeOfDayRow accepts both the documented "revenue" field and the "value" field
// emitted by older backend builds.
type timeOfDayRow struct {
	Name    string              `json:"name"`
	Revenue decimal.NullDecimal `json:"revenue"`
	Value   decimal.NullDecimal `json:"value"`
}

func (r timeOfDayRow) toSlice() dashboard.TimeOfDaySlice {
	out := dashboard.TimeOfDaySlice{Name: r.Name}
	switch {
	case r.Revenue.Valid:
		out.Revenue = r.Revenue.Decimal
	case r.Value.Valid:
		out.Revenue = r.Value.Decimal
	}
	return out
}
