package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Growth Wallet Report: %s\n\n", r.Product.Name))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Session: `%s` | Product: `%s` | Category: %s\n\n", r.SessionID, r.Product.ID, r.Product.Category))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Weeks Simulated | %d |\n", s.Weeks))
	sb.WriteString(fmt.Sprintf("| Units Sold | %s |\n", humanize.Comma(int64(s.UnitsSold))))
	sb.WriteString(fmt.Sprintf("| Revenue | %s |\n", money(s.Revenue)))
	sb.WriteString(fmt.Sprintf("| Material Cost | %s |\n", money(s.MaterialCost)))
	sb.WriteString(fmt.Sprintf("| Marketing Spend | %s |\n", money(s.MarketingSpend)))
	sb.WriteString(fmt.Sprintf("| Earnings | %s |\n", money(s.Earnings)))
	sb.WriteString(fmt.Sprintf("| Total Profit | %s |\n", moneyf(s.TotalProfit)))
	sb.WriteString(fmt.Sprintf("| Final Price | %s |\n", moneyf(s.FinalPrice)))
	if s.Weeks > 0 {
		sb.WriteString(fmt.Sprintf("| Best Week | %d |\n", s.BestWeek))
		sb.WriteString(fmt.Sprintf("| Worst Week | %d |\n", s.WorstWeek))
	}
	sb.WriteString("\n")

	if s.Weeks > 0 {
		st := s.Stats
		sb.WriteString("## Earnings Distribution\n\n")
		sb.WriteString("| Win Rate | Mean | Stddev | P10 | Median | P90 | Max Drawdown | Max Losing Streak |\n")
		sb.WriteString("|----------|------|--------|-----|--------|-----|--------------|-------------------|\n")
		sb.WriteString(fmt.Sprintf("| %.1f%% | %s | %s | %s | %s | %s | %s | %d |\n\n",
			st.WinRate*100, moneyf(st.Mean), moneyf(st.Stddev), moneyf(st.P10), moneyf(st.Median),
			moneyf(st.P90), moneyf(st.MaxDrawdown), st.MaxConsecutiveLosses))
	}

	// Weekly table
	sb.WriteString("## Weekly History\n\n")
	if len(r.Weeks) > 0 {
		sb.WriteString("| Week | Strategy | Price | Sales | Revenue | Marketing | Earnings |\n")
		sb.WriteString("|------|----------|-------|-------|---------|-----------|----------|\n")
		for _, w := range r.Weeks {
			strategy := w.Strategy
			if strategy == "" {
				strategy = "-"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s | %s | %s |\n",
				w.Week, strategy, moneyf(w.Price), w.Sales,
				money(w.Revenue), moneyf(w.MarketingCost), moneyf(w.Earnings)))
		}
	} else {
		sb.WriteString("No history available.\n")
	}
	sb.WriteString("\n")

	// Strategy Metrics
	sb.WriteString("## Strategy Metrics\n\n")
	if len(r.StrategyMetrics) > 0 {
		sb.WriteString("| Strategy | Steps | Mean Earnings | Mean Sales | Mean Demand | Max Earnings | Min Earnings |\n")
		sb.WriteString("|----------|-------|---------------|------------|-------------|--------------|--------------|\n")
		for _, m := range r.StrategyMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %.2f | %.4f | %s | %s |\n",
				m.Strategy, m.Steps, moneyf(m.MeanEarnings), m.MeanSales, m.MeanDemand,
				moneyf(m.MaxEarnings), moneyf(m.MinEarnings)))
		}
	} else {
		sb.WriteString("No strategy metrics available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func moneyf(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
