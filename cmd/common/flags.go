package common

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// CommonFlags contains flags shared by the commands
type CommonFlags struct {
	EnvFile     *string
	ConsoleOnly *bool
	Verbose     *bool
	Version     *bool
}

// RegisterCommonFlags registers common flags with the default flag set
func RegisterCommonFlags() *CommonFlags {
	return RegisterCommonFlagsOn(flag.CommandLine)
}

// RegisterCommonFlagsOn registers common flags with fs
func RegisterCommonFlagsOn(fs *flag.FlagSet) *CommonFlags {
	return &CommonFlags{
		EnvFile:     fs.String("env", ".env", "Environment file path"),
		ConsoleOnly: fs.Bool("console-only", false, "Log to the console only (no log file)"),
		Verbose:     fs.Bool("verbose", false, "Enable debug logging"),
		Version:     fs.Bool("version", false, "Show version information"),
	}
}

// LogLevel resolves the effective log level from the flags and the configured level
func (f *CommonFlags) LogLevel(configured string) string {
	if f.Verbose != nil && *f.Verbose {
		return "debug"
	}
	return configured
}

// FlagValidator collects flag validation errors
type FlagValidator struct {
	errors []string
}

// NewFlagValidator creates a new flag validator
func NewFlagValidator() *FlagValidator {
	return &FlagValidator{
		errors: make([]string, 0),
	}
}

// ValidateDuration rejects a negative duration
func (v *FlagValidator) ValidateDuration(name string, d time.Duration) *FlagValidator {
	if d < 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must not be negative, got %s", name, d))
	}
	return v
}

// ValidateOneOf rejects value when it is set and not in allowed
func (v *FlagValidator) ValidateOneOf(name, value string, allowed ...string) *FlagValidator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return v
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), value))
	return v
}

// Error returns the collected errors, or nil
func (v *FlagValidator) Error() error {
	if len(v.errors) == 0 {
		return nil
	}
	return fmt.Errorf("invalid flags:\n  %s", strings.Join(v.errors, "\n  "))
}
