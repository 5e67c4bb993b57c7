package notifications

// Alert levels understood by every notifier
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelSuccess = "success"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// NopNotifier drops every alert
type NopNotifier struct{}

func (NopNotifier) SendAlert(level, message string) error { return nil }
