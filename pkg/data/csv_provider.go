package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
	}
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads bars from a CSV file with a header row. Malformed rows are
// skipped; the count is reported in the error only when no row survives.
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.read(file)
}

func (p *CSVProvider) read(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	var data []types.OHLCV
	skipped := 0
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		bar, ok := p.parseRecord(record, format)
		if !ok {
			skipped++
			continue
		}
		data = append(data, bar)
	}

	if len(data) == 0 && skipped > 0 {
		return nil, fmt.Errorf("no valid rows (%d skipped)", skipped)
	}
	return data, nil
}

func (p *CSVProvider) parseRecord(record []string, format CSVColumnMapping) (types.OHLCV, bool) {
	if len(record) < format.MinColumns {
		return types.OHLCV{}, false
	}

	timestamp, err := parseTimestamp(strings.TrimSpace(record[format.TimestampCol]), format.DateFormat)
	if err != nil {
		return types.OHLCV{}, false
	}

	var values [5]float64
	for i, col := range []int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return types.OHLCV{}, false
		}
		values[i] = v
	}

	bar := types.OHLCV{
		Timestamp: timestamp,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if validateBar(bar) != nil {
		return types.OHLCV{}, false
	}
	return bar, true
}

// parseTimestamp tries layout, then RFC 3339, then unix milliseconds
func parseTimestamp(s, layout string) (time.Time, error) {
	if layout != "" {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func validateBar(candle types.OHLCV) error {
	if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if candle.High < candle.Low {
		return fmt.Errorf("high (%.4f) cannot be less than low (%.4f)", candle.High, candle.Low)
	}
	if candle.High < candle.Open || candle.High < candle.Close {
		return fmt.Errorf("high (%.4f) must be >= open (%.4f) and close (%.4f)", candle.High, candle.Open, candle.Close)
	}
	if candle.Low > candle.Open || candle.Low > candle.Close {
		return fmt.Errorf("low (%.4f) must be <= open (%.4f) and close (%.4f)", candle.Low, candle.Open, candle.Close)
	}
	if candle.Volume < 0 {
		return fmt.Errorf("volume cannot be negative")
	}
	return nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}

	for i, candle := range data {
		if err := validateBar(candle); err != nil {
			return fmt.Errorf("invalid price data at index %d: %w", i, err)
		}
		if i > 0 && !candle.Timestamp.After(data[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be strictly increasing", i)
		}
	}

	return nil
}
