package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/xuri/excelize/v2"
)

const (
	tradesSheet  = "Trades"
	summarySheet = "Summary"
)

var tradeHeaders = []string{
	"ID", "Symbol", "Side", "Opened", "Closed", "Entry", "Exit", "Quantity",
	"Stop Loss", "Take Profit", "Confidence", "Realized P&L", "Return %", "Close Reason", "Holding (h)",
}

// DefaultExcelReporter writes the trade history workbook
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes closed positions and the portfolio summary to path
func (r *DefaultExcelReporter) WriteTradesXLSX(history []position.Position, summary portfolio.PortfolioState, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, history, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summary, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, history []position.Position, styles ExcelStyles) error {
	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(tradeHeaders), 1)
	if err := fx.SetCellStyle(tradesSheet, "A1", last, styles.HeaderStyle); err != nil {
		return err
	}

	row := 2
	for _, p := range history {
		if p.Status != position.StatusClosed || p.ClosedAt == nil {
			continue
		}
		values := []interface{}{
			p.ID,
			p.Symbol,
			string(p.Side),
			p.OpenedAt.UTC().Format("2006-01-02 15:04:05"),
			p.ClosedAt.UTC().Format("2006-01-02 15:04:05"),
			p.EntryPrice,
			p.ExitPrice,
			p.Quantity,
			p.StopLoss,
			p.TakeProfit,
			p.Confidence,
			p.RealizedPnL,
			p.ReturnPct() / 100,
			string(p.CloseReason),
			p.HoldingTime(*p.ClosedAt).Hours(),
		}
		r.writeTradeRow(fx, row, values, p.RealizedPnL, styles)
		row++
	}

	widths := map[string]float64{"A": 38, "B": 10, "C": 8, "D": 20, "E": 20, "N": 18}
	for col, w := range widths {
		fx.SetColWidth(tradesSheet, col, col, w)
	}
	fx.SetColWidth(tradesSheet, "F", "M", 13)
	return fx.SetPanes(tradesSheet, &excelize.Panes{Freeze: true, Split: false, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (r *DefaultExcelReporter) writeTradeRow(fx *excelize.File, row int, values []interface{}, pnl float64, styles ExcelStyles) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		fx.SetCellValue(tradesSheet, cell, v)

		style := styles.BaseStyle
		switch tradeHeaders[i] {
		case "Entry", "Exit", "Stop Loss", "Take Profit":
			style = styles.CurrencyStyle
		case "Realized P&L":
			style = styles.ProfitStyle
			if pnl < 0 {
				style = styles.LossStyle
			}
		case "Return %", "Confidence":
			style = styles.PercentStyle
		}
		fx.SetCellStyle(tradesSheet, cell, cell, style)
	}
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, s portfolio.PortfolioState, styles ExcelStyles) error {
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Initial Capital", s.InitialCapital, styles.CurrencyStyle},
		{"Total Value", s.TotalValue, styles.CurrencyStyle},
		{"Cash", s.Cash, styles.CurrencyStyle},
		{"Realized P&L", s.RealizedPnL, styles.CurrencyStyle},
		{"Unrealized P&L", s.UnrealizedPnL, styles.CurrencyStyle},
		{"Total Return", s.TotalPnLPct / 100, styles.PercentStyle},
		{"Closed Positions", s.ClosedPositions, styles.BaseStyle},
		{"Wins", s.Wins, styles.BaseStyle},
		{"Losses", s.Losses, styles.BaseStyle},
		{"Win Rate", s.WinRate, styles.PercentStyle},
		{"Profit Factor", s.ProfitFactor, styles.BaseStyle},
		{"Average Win", s.AvgWin, styles.CurrencyStyle},
		{"Average Loss", s.AvgLoss, styles.CurrencyStyle},
		{"Sharpe Ratio", s.SharpeRatio, styles.BaseStyle},
		{"Max Drawdown", s.MaxDrawdown, styles.PercentStyle},
		{"VaR 95", s.VaR95, styles.PercentStyle},
		{"Risk Level", string(s.RiskLevel), styles.BaseStyle},
		{"Updated", s.UpdatedAt.UTC().Format("2006-01-02 15:04:05"), styles.BaseStyle},
	}

	fx.SetCellValue(summarySheet, "A1", "Metric")
	fx.SetCellValue(summarySheet, "B1", "Value")
	if err := fx.SetCellStyle(summarySheet, "A1", "B1", styles.SummaryStyle); err != nil {
		return err
	}
	for i, row := range rows {
		n := i + 2
		fx.SetCellValue(summarySheet, fmt.Sprintf("A%d", n), row.label)
		fx.SetCellValue(summarySheet, fmt.Sprintf("B%d", n), row.value)
		fx.SetCellStyle(summarySheet, fmt.Sprintf("B%d", n), fmt.Sprintf("B%d", n), row.style)
	}
	fx.SetColWidth(summarySheet, "A", "A", 20)
	fx.SetColWidth(summarySheet, "B", "B", 22)
	return nil
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	thinBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Dark slate header with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return styles, err
	}

	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.ProfitStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	return styles, err
}

// WriteTradesXLSX is a convenience function using the default reporter
func WriteTradesXLSX(history []position.Position, summary portfolio.PortfolioState, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(history, summary, path)
}
