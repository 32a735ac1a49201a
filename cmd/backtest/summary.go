package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for the left column of the summary.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(18)

	// BoxStyle frames the summary.
	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FormatChange formats a signed value with an indicator of its direction.
func FormatChange(value float64, suffix string) string {
	text := fmt.Sprintf("%.2f%s", value, suffix)

	switch {
	case value > 0:
		return gainStyle.Render(text + " ▲")
	case value < 0:
		return lossStyle.Render(text + " ▼")
	default:
		return text
	}
}

func renderSummary(result types.BacktestResult) string {
	rows := [][2]string{
		{"Run", result.ID},
		{"Period", fmt.Sprintf("%s → %s", result.Start.Format(time.DateTime), result.End.Format(time.DateTime))},
		{"Initial value", fmt.Sprintf("%.2f %s", result.InitialValue, result.QuoteAsset)},
		{"Final value", fmt.Sprintf("%.2f %s", result.FinalValue, result.QuoteAsset)},
		{"Return", FormatChange(result.Metrics.Return, " "+result.QuoteAsset)},
		{"Return %", FormatChange(result.Metrics.ReturnPercent, "%")},
		{"CAGR", FormatChange(result.Metrics.CAGR, "%")},
		{"Max drawdown", fmt.Sprintf("%.2f (%.2f%%)", result.Metrics.MaxDrawdown, result.Metrics.MaxDrawdownPercent)},
		{"Sharpe", fmt.Sprintf("%.3f", result.Metrics.SharpeRatio)},
		{"Sortino", fmt.Sprintf("%.3f", result.Metrics.SortinoRatio)},
		{"Trades", fmt.Sprintf("%d", result.Metrics.NumberOfTrades)},
		{"Fees", fmt.Sprintf("%.4f", result.Metrics.TotalFees)},
	}

	assets := make([]string, 0, len(result.FinalBalances))
	for asset := range result.FinalBalances {
		assets = append(assets, asset)
	}

	slices.Sort(assets)

	for _, asset := range assets {
		rows = append(rows, [2]string{"Balance " + asset, fmt.Sprintf("%.8g", result.FinalBalances[asset])})
	}

	if result.ResultFolder != "" {
		rows = append(rows, [2]string{"Results", result.ResultFolder})
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, TitleStyle.Render("Backtest summary"))

	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(row[0]), row[1]))
	}

	return BoxStyle.Render(strings.Join(lines, "\n"))
}
