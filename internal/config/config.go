package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxSymbols bounds the tracked symbol set
const MaxSymbols = 50

// DefaultTargetInstitutions are the holders whose presence raises whale alerts
var DefaultTargetInstitutions = []string{
	"BERKSHIRE HATHAWAY INC",
	"BLACKROCK INC.",
	"VANGUARD GROUP INC",
	"STATE STREET CORP",
	"FIDELITY MANAGEMENT & RESEARCH COMPANY LLC",
	"JPMORGAN CHASE & CO",
	"BANK OF AMERICA CORP",
	"GOLDMAN SACHS GROUP INC",
	"MORGAN STANLEY",
	"CITADEL ADVISORS LLC",
}

// Duration is a time.Duration that reads "5m" style strings or plain seconds from JSON
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the validated configuration bundle for the whole process
type Config struct {
	Symbols        []string `json:"symbols"`
	InitialCapital float64  `json:"initial_capital"`

	Risk          RiskConfig          `json:"risk"`
	Signal        SignalConfig        `json:"signal"`
	Whale         WhaleConfig         `json:"whale"`
	Portfolio     PortfolioConfig     `json:"portfolio"`
	Runtime       RuntimeConfig       `json:"runtime"`
	Feed          FeedConfig          `json:"feed"`
	Storage       StorageConfig       `json:"storage"`
	API           APIConfig           `json:"api"`
	Logging       LoggingConfig       `json:"logging"`
	Notifications *NotificationConfig `json:"notifications,omitempty"`
}

// RiskConfig holds the capital allocation limits
type RiskConfig struct {
	MaxPositionFraction float64  `json:"max_position_fraction"` // of portfolio value per position
	MaxDailyLoss        float64  `json:"max_daily_loss"`        // fraction of portfolio value
	StopLossPct         float64  `json:"stop_loss_pct"`
	TakeProfitPct       float64  `json:"take_profit_pct"`
	MaxOpenPositions    int      `json:"max_open_positions"`
	MinVolume           float64  `json:"min_volume"` // quote turnover of the latest completed bar
	MinConfidence       float64  `json:"min_confidence"`
	MinRiskReward       float64  `json:"min_risk_reward"`
	MaxExposure         float64  `json:"max_exposure"` // hard ceiling, fraction of portfolio value
	LotSize             float64  `json:"lot_size"`
	MaxSignalAge        Duration `json:"max_signal_age"`
	ReversalConfidence  float64  `json:"reversal_confidence"`
	MaxHoldingTime      Duration `json:"max_holding_time"`
}

// IndicatorRSIConfig holds RSI indicator configuration
type IndicatorRSIConfig struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// IndicatorMACDConfig holds MACD indicator configuration
type IndicatorMACDConfig struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

// IndicatorBBConfig holds Bollinger Bands configuration
type IndicatorBBConfig struct {
	Period int     `json:"period"`
	StdDev float64 `json:"std_dev"`
}

// IndicatorSMAConfig holds the moving-average crossover periods
type IndicatorSMAConfig struct {
	ShortPeriod int `json:"short_period"`
	LongPeriod  int `json:"long_period"`
}

// SourceWeights weight each signal source in the combined score
type SourceWeights struct {
	Technical  float64 `json:"technical"`
	Whale      float64 `json:"whale"`
	Sentiment  float64 `json:"sentiment"`
	Volatility float64 `json:"volatility"`
}

// SignalConfig configures the signal generator
type SignalConfig struct {
	RSI                IndicatorRSIConfig  `json:"rsi"`
	MACD               IndicatorMACDConfig `json:"macd"`
	BollingerBands     IndicatorBBConfig   `json:"bollinger_bands"`
	SMA                IndicatorSMAConfig  `json:"sma"`
	Weights            SourceWeights       `json:"weights"`
	DirectionThreshold float64             `json:"direction_threshold"`
	ConflictPenalty    float64             `json:"conflict_penalty"`
	SentimentThreshold float64             `json:"sentiment_threshold"`
	VolatilityWindow   int                 `json:"volatility_window"`
}

// WhaleConfig configures the whale detector and the alert log
type WhaleConfig struct {
	VolumeBaselineWindow   int      `json:"volume_baseline_window"`
	VolumeSpikeMultiplier  float64  `json:"volume_spike_multiplier"`
	HighSeverityMultiplier float64  `json:"high_severity_multiplier"`
	FilingChangePct        float64  `json:"filing_change_pct"`
	FilingMediumPct        float64  `json:"filing_medium_pct"`
	FilingHighPct          float64  `json:"filing_high_pct"`
	PresenceHighPct        float64  `json:"presence_high_pct"`
	TargetInstitutions     []string `json:"target_institutions"`
	MaxAlerts              int      `json:"max_alerts"`
	AlertRetention         Duration `json:"alert_retention"`
}

// PortfolioConfig configures the derived metrics
type PortfolioConfig struct {
	SharpeLookback int `json:"sharpe_lookback"`
	PeriodsPerYear int `json:"periods_per_year"`
	MaxSeries      int `json:"max_series"`
}

// RuntimeConfig configures the cycle runner
type RuntimeConfig struct {
	UpdateInterval Duration `json:"update_interval"`
	FetchTimeout   Duration `json:"fetch_timeout"`
	Workers        int      `json:"workers"`
	PersistEvery   int      `json:"persist_every"`
	HistoryBars    int      `json:"history_bars"`
}

// FeedConfig selects and configures the snapshot source
type FeedConfig struct {
	Source      string `json:"source"` // "bybit" or "csv"
	Category    string `json:"category"`
	Interval    string `json:"interval"`
	Demo        bool   `json:"demo"`
	DataDir     string `json:"data_dir"`
	FilingsFile string `json:"filings_file,omitempty"`
	APIKey      string `json:"-"`
	APISecret   string `json:"-"`
}

// StorageConfig configures persistence collaborators
type StorageConfig struct {
	StateFile   string `json:"state_file"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	RedisKey    string `json:"redis_key"`
	DatabaseURL string `json:"-"`
	ReportDir   string `json:"report_dir"`
}

// APIConfig configures the dashboard and control server
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// LoggingConfig configures the session logger
type LoggingConfig struct {
	Dir     string `json:"dir"`
	Level   string `json:"level"`
	Console bool   `json:"console"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled       bool   `json:"enabled"`
	TelegramToken string `json:"telegram_token,omitempty"`
	TelegramChat  string `json:"telegram_chat,omitempty"`
}

// Default returns a configuration with every default applied and no symbols
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads, defaults, overlays the environment and validates a configuration file
func Load(configFile string) (*Config, error) {
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return Parse(data)
}

// Parse builds a validated configuration from JSON bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads a .env file into the process environment
func LoadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return fmt.Errorf(".env file not found: %s", envFile)
	}
	return godotenv.Load(envFile)
}

// ApplyEnv overlays secrets and endpoints from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		c.Feed.APISecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.InitialCapital = f
		}
	}
	token, chat := os.Getenv("TELEGRAM_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")
	if token != "" && chat != "" {
		if c.Notifications == nil {
			c.Notifications = &NotificationConfig{}
		}
		c.Notifications.Enabled = true
		c.Notifications.TelegramToken = token
		c.Notifications.TelegramChat = chat
	}
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.InitialCapital == 0 {
		c.InitialCapital = 100000
	}

	r := &c.Risk
	if r.MaxPositionFraction == 0 {
		r.MaxPositionFraction = 0.05
	}
	if r.MaxDailyLoss == 0 {
		r.MaxDailyLoss = 0.02
	}
	if r.StopLossPct == 0 {
		r.StopLossPct = 0.03
	}
	if r.TakeProfitPct == 0 {
		r.TakeProfitPct = 0.06
	}
	if r.MaxOpenPositions == 0 {
		r.MaxOpenPositions = 10
	}
	if r.MinVolume == 0 {
		r.MinVolume = 1000000
	}
	if r.MinConfidence == 0 {
		r.MinConfidence = 0.6
	}
	if r.MinRiskReward == 0 {
		r.MinRiskReward = 1.5
	}
	if r.MaxExposure == 0 {
		r.MaxExposure = 0.15
	}
	if r.LotSize == 0 {
		r.LotSize = 1
	}
	if r.MaxSignalAge == 0 {
		r.MaxSignalAge = Duration(10 * time.Minute)
	}
	if r.ReversalConfidence == 0 {
		r.ReversalConfidence = 0.8
	}
	if r.MaxHoldingTime == 0 {
		r.MaxHoldingTime = Duration(7 * 24 * time.Hour)
	}

	s := &c.Signal
	if s.RSI.Period == 0 {
		s.RSI.Period = 14
	}
	if s.RSI.Oversold == 0 {
		s.RSI.Oversold = 30
	}
	if s.RSI.Overbought == 0 {
		s.RSI.Overbought = 70
	}
	if s.MACD.FastPeriod == 0 {
		s.MACD.FastPeriod = 12
	}
	if s.MACD.SlowPeriod == 0 {
		s.MACD.SlowPeriod = 26
	}
	if s.MACD.SignalPeriod == 0 {
		s.MACD.SignalPeriod = 9
	}
	if s.BollingerBands.Period == 0 {
		s.BollingerBands.Period = 20
	}
	if s.BollingerBands.StdDev == 0 {
		s.BollingerBands.StdDev = 2.0
	}
	if s.SMA.ShortPeriod == 0 {
		s.SMA.ShortPeriod = 10
	}
	if s.SMA.LongPeriod == 0 {
		s.SMA.LongPeriod = 50
	}
	if s.Weights == (SourceWeights{}) {
		s.Weights = SourceWeights{Technical: 0.4, Whale: 0.3, Sentiment: 0.2, Volatility: 0.1}
	}
	if s.DirectionThreshold == 0 {
		s.DirectionThreshold = 0.6
	}
	if s.ConflictPenalty == 0 {
		s.ConflictPenalty = 0.2
	}
	if s.SentimentThreshold == 0 {
		s.SentimentThreshold = 0.3
	}
	if s.VolatilityWindow == 0 {
		s.VolatilityWindow = 20
	}

	w := &c.Whale
	if w.VolumeBaselineWindow == 0 {
		w.VolumeBaselineWindow = 20
	}
	if w.VolumeSpikeMultiplier == 0 {
		w.VolumeSpikeMultiplier = 3.0
	}
	if w.HighSeverityMultiplier == 0 {
		w.HighSeverityMultiplier = 5.0
	}
	if w.FilingChangePct == 0 {
		w.FilingChangePct = 1.0
	}
	if w.FilingMediumPct == 0 {
		w.FilingMediumPct = 2.0
	}
	if w.FilingHighPct == 0 {
		w.FilingHighPct = 5.0
	}
	if w.PresenceHighPct == 0 {
		w.PresenceHighPct = 10.0
	}
	if len(w.TargetInstitutions) == 0 {
		w.TargetInstitutions = append([]string(nil), DefaultTargetInstitutions...)
	}
	if w.MaxAlerts == 0 {
		w.MaxAlerts = 500
	}
	if w.AlertRetention == 0 {
		w.AlertRetention = Duration(24 * time.Hour)
	}

	p := &c.Portfolio
	if p.SharpeLookback == 0 {
		p.SharpeLookback = 30
	}
	if p.PeriodsPerYear == 0 {
		p.PeriodsPerYear = 252
	}
	if p.MaxSeries == 0 {
		p.MaxSeries = 2000
	}

	rt := &c.Runtime
	if rt.UpdateInterval == 0 {
		rt.UpdateInterval = Duration(300 * time.Second)
	}
	if rt.FetchTimeout == 0 {
		rt.FetchTimeout = Duration(10 * time.Second)
	}
	if rt.Workers == 0 {
		rt.Workers = 4
	}
	if rt.PersistEvery == 0 {
		rt.PersistEvery = 1
	}
	if rt.HistoryBars == 0 {
		rt.HistoryBars = 100
	}

	if c.Feed.Source == "" {
		c.Feed.Source = "bybit"
	}
	if c.Feed.Category == "" {
		c.Feed.Category = "spot"
	}
	if c.Feed.Interval == "" {
		c.Feed.Interval = "60"
	}

	if c.Storage.StateFile == "" {
		c.Storage.StateFile = filepath.Join("state", "whale_tracker.json")
	}
	if c.Storage.RedisKey == "" {
		c.Storage.RedisKey = "whale_tracker:state"
	}
	if c.Storage.ReportDir == "" {
		c.Storage.ReportDir = "reports"
	}

	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}

	for i, sym := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(sym))
	}
}
