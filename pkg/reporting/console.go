package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const consoleAlerts = 10

// DefaultConsoleReporter renders dashboard snapshots as tables
type DefaultConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDefaultConsoleReporter writes to w, or stdout when w is nil
func NewDefaultConsoleReporter(w io.Writer) *DefaultConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &DefaultConsoleReporter{out: w}
}

// Publish renders every snapshot the engine publishes
func (r *DefaultConsoleReporter) Publish(s orchestrator.Snapshot) {
	r.Render(s)
}

// Render prints the portfolio summary, open positions and recent alerts
func (r *DefaultConsoleReporter) Render(s orchestrator.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.renderSummary(s)
	r.renderPositions(s)
	r.renderAlerts(s)
}

func (r *DefaultConsoleReporter) renderSummary(s orchestrator.Snapshot) {
	p := s.Portfolio

	t := r.newTable(fmt.Sprintf("WHALE TRACKER  cycle %d  %s", s.Cycle, s.GeneratedAt.Format("2006-01-02 15:04:05")))
	t.AppendRows([]table.Row{
		{"Run State", string(s.RunState)},
		{"Risk Status", s.RiskStatus},
		{"Total Value", fmt.Sprintf("$%.2f", p.TotalValue)},
		{"Cash", fmt.Sprintf("$%.2f", p.Cash)},
		{"Total P&L", fmt.Sprintf("$%.2f (%.2f%%)", p.TotalPnL, p.TotalPnLPct)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Win Rate", fmt.Sprintf("%.1f%% (%d/%d)", p.WinRate*100, p.Wins, p.ClosedPositions)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", p.SharpeRatio)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", p.MaxDrawdown*100)},
		{"VaR 95", fmt.Sprintf("%.2f%%", p.VaR95*100)},
		{"Profit Factor", fmt.Sprintf("%.2f", p.ProfitFactor)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Exposure", fmt.Sprintf("$%.2f (%.1f%%)", p.Exposure, p.ExposurePct)},
		{"Risk Level", colorRisk(string(p.RiskLevel))},
		{"Daily P&L", fmt.Sprintf("$%.2f of -$%.2f", s.Risk.DailyRealizedPnL, s.Risk.DailyLossLimit)},
		{"Last Cycle", fmt.Sprintf("%d evaluated, %d unavailable, %d opened, %d closed",
			s.LastCycle.Evaluated, s.LastCycle.Unavailable, s.LastCycle.Opened, s.LastCycle.Closed)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) renderPositions(s orchestrator.Snapshot) {
	if len(s.OpenPositions) == 0 {
		return
	}

	t := r.newTable("OPEN POSITIONS")
	t.AppendHeader(table.Row{"Symbol", "Side", "Qty", "Entry", "Last", "Stop", "Target", "Unrealized", "Opened"})
	for _, p := range s.OpenPositions {
		t.AppendRow(table.Row{
			p.Symbol,
			string(p.Side),
			fmt.Sprintf("%.4f", p.Quantity),
			fmt.Sprintf("%.2f", p.EntryPrice),
			fmt.Sprintf("%.2f", p.LastPrice),
			fmt.Sprintf("%.2f", p.StopLoss),
			fmt.Sprintf("%.2f", p.TakeProfit),
			colorPnL(p.UnrealizedPnL),
			p.OpenedAt.Format("01-02 15:04"),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) renderAlerts(s orchestrator.Snapshot) {
	if len(s.Alerts) == 0 {
		return
	}

	t := r.newTable("RECENT ALERTS")
	t.AppendHeader(table.Row{"Time", "Symbol", "Kind", "Severity", "Message"})
	for i, a := range s.Alerts {
		if i == consoleAlerts {
			break
		}
		t.AppendRow(table.Row{
			a.Timestamp.Format("01-02 15:04"),
			a.Symbol,
			string(a.Kind),
			strings.ToUpper(string(a.Severity)),
			a.Message,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
	})
	t.Render()
}

// PrintConfig prints label/value pairs as a startup table
func (r *DefaultConsoleReporter) PrintConfig(rows [][2]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.newTable("CONFIGURATION")
	for _, row := range rows {
		t.AppendRow(table.Row{row[0], row[1]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func colorPnL(v float64) string {
	s := fmt.Sprintf("%+.2f", v)
	switch {
	case v > 0:
		return text.FgGreen.Sprint(s)
	case v < 0:
		return text.FgRed.Sprint(s)
	}
	return s
}

func colorRisk(level string) string {
	switch level {
	case "CRITICAL":
		return text.Colors{text.Bold, text.FgRed}.Sprint(level)
	case "HIGH":
		return text.FgRed.Sprint(level)
	case "MEDIUM":
		return text.FgYellow.Sprint(level)
	}
	return text.FgGreen.Sprint(level)
}
