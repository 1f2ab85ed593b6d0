package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	ListenAddr  string
	BaseURL     string
	DatabaseURL string

	// widget
	WidgetURL       string
	SelectorsFile   string
	ConfirmationTag string
	ContactEmail    string

	// browser
	Headless bool
	MaxPages int

	// delays and timeouts used while driving the widget
	Settle         time.Duration
	StepSettle     time.Duration
	SubmitSettle   time.Duration
	ElementTimeout time.Duration
	KeyDelay       time.Duration

	AvailabilityFunction string
	Location             *time.Location

	// attempt journal
	JournalRetention time.Duration
	PruneInterval    time.Duration

	LogLevel    string
	LogFormat   string
	LogFile     string
	TraceStdout bool
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:           getenv("LISTEN_ADDR", ":3000"),
		BaseURL:              getenv("BASE_URL", "http://localhost:3000"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		WidgetURL:            os.Getenv("WIDGET_URL"),
		SelectorsFile:        os.Getenv("SELECTORS_FILE"),
		ConfirmationTag:      getenv("CONFIRMATION_TAG", "ALAKRAN"),
		ContactEmail:         os.Getenv("DEFAULT_CONTACT_EMAIL"),
		AvailabilityFunction: getenv("AVAILABILITY_FUNCTION", "checkAvailabilityALAKRAN"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFormat:            getenv("LOG_FORMAT", "text"),
		LogFile:              os.Getenv("LOG_FILE"),
	}

	var errs []error
	cfg.Headless, errs = boolVar(errs, "BROWSER_HEADLESS", true)
	cfg.TraceStdout, errs = boolVar(errs, "TRACE_STDOUT", false)

	var n int
	n, errs = intVar(errs, "BROWSER_MAX_PAGES", 4, 1)
	cfg.MaxPages = n

	cfg.Settle, errs = millisVar(errs, "SETTLE_MS", 2000)
	cfg.StepSettle, errs = millisVar(errs, "STEP_SETTLE_MS", 1000)
	cfg.SubmitSettle, errs = millisVar(errs, "SUBMIT_SETTLE_MS", 3000)
	cfg.ElementTimeout, errs = millisVar(errs, "ELEMENT_TIMEOUT_MS", 10000)
	cfg.KeyDelay, errs = millisVar(errs, "KEY_DELAY_MS", 50)

	n, errs = intVar(errs, "JOURNAL_RETENTION_HOURS", 720, 1)
	cfg.JournalRetention = time.Duration(n) * time.Hour
	n, errs = intVar(errs, "PRUNE_INTERVAL_SECONDS", 3600, 1)
	cfg.PruneInterval = time.Duration(n) * time.Second

	tz := getenv("TIMEZONE", "Europe/Madrid")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err))
	}
	cfg.Location = loc

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT %q (text or json)", cfg.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func boolVar(errs []error, k string, def bool) (bool, []error) {
	v := os.Getenv(k)
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("invalid %s", k))
	}
	return b, errs
}

func intVar(errs []error, k string, def, floor int) (int, []error) {
	v := os.Getenv(k)
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < floor {
		return def, append(errs, fmt.Errorf("invalid %s", k))
	}
	return n, errs
}

func millisVar(errs []error, k string, def int) (time.Duration, []error) {
	n, errs := intVar(errs, k, def, 0)
	return time.Duration(n) * time.Millisecond, errs
}
