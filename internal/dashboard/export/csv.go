// Package export writes dashboard state to downloadable formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
)

// WriteKPICSV serialises the KPI summary as metric/value rows.
func WriteKPICSV(w io.Writer, k dashboard.KPISummary) error {
	writer := csv.NewWriter(w)
	records := [][]string{
		{"Metric", "Value"},
		{"Revenue", money(k.Revenue)},
		{"Profit", money(k.Profit)},
		{"Orders", strconv.FormatInt(k.Orders, 10)},
		{"Average Order Value", money(k.AOV)},
		{"Low Stock Count", strconv.FormatInt(k.LowStockCount, 10)},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

// WriteHourlyCSV emits the intraday revenue and profit series.
func WriteHourlyCSV(w io.Writer, points []dashboard.HourlyPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Hour", "Revenue", "Profit"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{p.Hour, money(p.Revenue), money(p.Profit)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStateCSV writes the KPI block, a blank separator row and the hourly block.
func WriteStateCSV(w io.Writer, state dashboard.State) error {
	if err := WriteKPICSV(w, state.View.KPIs); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return WriteHourlyCSV(w, state.View.Hourly)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
