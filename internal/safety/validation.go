package safety

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

func invalid(code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Message: fmt.Sprintf(format, args...), Code: code}
}

// Validator rejects feed readings that cannot be trusted
type Validator struct {
	maxFutureSkew time.Duration
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{maxFutureSkew: time.Hour}
}

// ValidatePrice validates a price value
func (v *Validator) ValidatePrice(price float64, symbol string) ValidationResult {
	if math.IsNaN(price) {
		return invalid("INVALID_PRICE_NAN", "invalid price for %s: price is NaN", symbol)
	}
	if math.IsInf(price, 0) {
		return invalid("INVALID_PRICE_INF", "invalid price for %s: price is infinite", symbol)
	}
	if price <= 0 {
		return invalid("INVALID_PRICE_NEGATIVE", "invalid price %.8f for %s: price must be positive", price, symbol)
	}
	if price > 1e10 {
		return invalid("PRICE_OUT_OF_BOUNDS", "suspicious price %.8f for %s: exceeds reasonable bounds", price, symbol)
	}
	return ValidationResult{Valid: true}
}

// ValidateVolume validates a traded volume
func (v *Validator) ValidateVolume(volume float64, symbol string) ValidationResult {
	if math.IsNaN(volume) || math.IsInf(volume, 0) {
		return invalid("INVALID_VOLUME", "invalid volume for %s", symbol)
	}
	if volume < 0 {
		return invalid("INVALID_VOLUME_NEGATIVE", "invalid volume %.2f for %s: volume cannot be negative", volume, symbol)
	}
	return ValidationResult{Valid: true}
}

// ValidateSymbol validates a ticker format
func (v *Validator) ValidateSymbol(symbol string) ValidationResult {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return invalid("SYMBOL_EMPTY", "symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return invalid("SYMBOL_TOO_LONG", "symbol '%s' too long: maximum 20 characters allowed", symbol)
	}
	for _, char := range symbol {
		if !((char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '.' || char == '-') {
			return invalid("SYMBOL_INVALID_CHARS", "symbol '%s' contains invalid characters", symbol)
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateTimestamp rejects readings stamped in the future relative to now
func (v *Validator) ValidateTimestamp(timestamp, now time.Time, context string) ValidationResult {
	if timestamp.IsZero() {
		return invalid("TIMESTAMP_MISSING", "%s timestamp is missing", context)
	}
	if timestamp.After(now.Add(v.maxFutureSkew)) {
		return invalid("TIMESTAMP_FUTURE", "%s timestamp %v is too far in the future", context, timestamp)
	}
	return ValidationResult{Valid: true}
}

// ValidateSnapshot checks an available snapshot; unavailable markers are always valid
func (v *Validator) ValidateSnapshot(s types.MarketSnapshot, now time.Time) ValidationResult {
	if r := v.ValidateSymbol(s.Symbol); !r.Valid {
		return r
	}
	if s.Status == types.SnapshotUnavailable {
		return ValidationResult{Valid: true}
	}
	if r := v.ValidatePrice(s.Price, s.Symbol); !r.Valid {
		return r
	}
	if r := v.ValidateVolume(s.Volume, s.Symbol); !r.Valid {
		return r
	}
	if r := v.ValidateTimestamp(s.Timestamp, now, s.Symbol); !r.Valid {
		return r
	}
	if s.Sentiment != nil && (math.IsNaN(*s.Sentiment) || *s.Sentiment < -1 || *s.Sentiment > 1) {
		return invalid("SENTIMENT_OUT_OF_RANGE", "sentiment for %s must be within [-1, 1]", s.Symbol)
	}
	for i := 1; i < len(s.History); i++ {
		if s.History[i].Timestamp.Before(s.History[i-1].Timestamp) {
			return invalid("HISTORY_UNORDERED", "history for %s is not oldest first", s.Symbol)
		}
	}
	return ValidationResult{Valid: true}
}
