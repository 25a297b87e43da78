package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the weekly table as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("session_id,product_id,week,strategy,price,sales,revenue,marketing_cost,earnings\n")

	// Rows
	for _, w := range r.Weeks {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.2f,%d,%s,%.2f,%.2f\n",
			r.SessionID,
			r.Product.ID,
			w.Week,
			w.Strategy,
			w.Price,
			w.Sales,
			w.Revenue.StringFixed(2),
			w.MarketingCost,
			w.Earnings,
		))
	}

	return sb.String()
}

// RenderStrategyCSV renders strategy metrics as CSV string.
func RenderStrategyCSV(rows []StrategyMetricRow) string {
	var sb strings.Builder

	sb.WriteString("strategy,steps,mean_earnings,mean_sales,mean_demand,max_earnings,min_earnings\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			m.Strategy,
			m.Steps,
			m.MeanEarnings,
			m.MeanSales,
			m.MeanDemand,
			m.MaxEarnings,
			m.MinEarnings,
		))
	}

	return sb.String()
}
