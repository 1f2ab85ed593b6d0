package thefork

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/example/forkbridge/internal/metrics"
)

const DefaultWidgetURL = "https://widget.thefork.com/en-GB/2ed2c147-011b-4981-b971-1d4718072466"

// Selectors is every literal the automation uses against the widget DOM.
// The widget is unversioned, so these live in data rather than code and can
// be overridden from a YAML file without a redeploy.
type Selectors struct {
	DateCellPrefix   string `yaml:"date_cell_prefix"`
	PartySizeControl string `yaml:"party_size_control"`
	// Must not match the calendar's date cells, which stay rendered.
	PartySizeOptions string `yaml:"party_size_options"`
	HourControl      string `yaml:"hour_control"`
	EnabledButtons   string `yaml:"enabled_buttons"`
	Buttons          string `yaml:"buttons"`

	FirstName     string `yaml:"first_name"`
	LastName      string `yaml:"last_name"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	CivilityLabel string `yaml:"civility_label"`
	NextButton    string `yaml:"next_button"`

	BookButton      string `yaml:"book_button"`
	InfantField     string `yaml:"infant_field"`
	InfantControl   string `yaml:"infant_control"`
	InfantOption    string `yaml:"infant_option"`
	InfantYes       string `yaml:"infant_yes"`
	InfantNo        string `yaml:"infant_no"`
	Allergies       string `yaml:"allergies"`
	SpecialRequests string `yaml:"special_requests"`

	SuccessMarker       string   `yaml:"success_marker"`
	ConfirmationPhrases []string `yaml:"confirmation_phrases"`
}

// DefaultSelectors matches the widget markup as last observed.
func DefaultSelectors() Selectors {
	return Selectors{
		DateCellPrefix:   "date-",
		PartySizeControl: "filter-button-dph-pax",
		PartySizeOptions: `button:not([data-testid^="date-"])`,
		HourControl:      "filter-button-dph-hour",
		EnabledButtons:   "button:not([disabled])",
		Buttons:          "button",

		FirstName:     "#contact-information-firstName",
		LastName:      "#contact-information-lastName",
		Email:         "#contact-information-email",
		Phone:         "#contact-information-phone-number",
		CivilityLabel: `label[for="contact-information-%s"]`,
		NextButton:    "contact-form-next-button",

		BookButton:      "submit-booking-button",
		InfantField:     "custom-field",
		InfantControl:   ".chili-single-select__control",
		InfantOption:    `div[class*="option"]`,
		InfantYes:       "Si",
		InfantNo:        "No",
		Allergies:       "more-information-optionalCustomFields.48d65063-d4a7-41d4-bea2-bf4d175b9984",
		SpecialRequests: "contact-special-requests-specialRequest",

		SuccessMarker: "wizard-layout-success",
		ConfirmationPhrases: []string{
			"confirmed",
			"confirmation",
			"gracias",
			"confirmación",
			"réservation confirmée",
		},
	}
}

func (s Selectors) DateCell(date string) string { return s.DateCellPrefix + date }

func (s Selectors) Civility(c string) string { return fmt.Sprintf(s.CivilityLabel, c) }

func (s Selectors) Validate() error {
	var errs []error
	required := map[string]string{
		"date_cell_prefix":   s.DateCellPrefix,
		"party_size_control": s.PartySizeControl,
		"party_size_options": s.PartySizeOptions,
		"hour_control":       s.HourControl,
		"enabled_buttons":    s.EnabledButtons,
		"buttons":            s.Buttons,
		"first_name":         s.FirstName,
		"last_name":          s.LastName,
		"email":              s.Email,
		"phone":              s.Phone,
		"next_button":        s.NextButton,
		"book_button":        s.BookButton,
		"success_marker":     s.SuccessMarker,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", k))
		}
	}
	if !strings.Contains(s.CivilityLabel, "%s") {
		errs = append(errs, errors.New("civility_label must contain %s"))
	}
	return errors.Join(errs...)
}

// LoadSelectors reads a YAML override file on top of DefaultSelectors.
// Keys absent from the file keep their default.
func LoadSelectors(path string) (Selectors, error) {
	s := DefaultSelectors()
	b, err := os.ReadFile(path)
	if err != nil {
		return Selectors{}, fmt.Errorf("read selectors %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Selectors{}, fmt.Errorf("parse selectors %q: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Selectors{}, fmt.Errorf("selectors %q: %w", path, err)
	}
	return s, nil
}

// Catalog holds the live selector set. Operations take a snapshot at start
// so a reload never changes selectors mid-flow.
type Catalog struct {
	path string

	mu  sync.RWMutex
	cur Selectors
}

func NewCatalog(s Selectors) *Catalog {
	return &Catalog{cur: s}
}

// OpenCatalog loads path, or returns the defaults when path is empty.
func OpenCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(DefaultSelectors()), nil
	}
	s, err := LoadSelectors(path)
	if err != nil {
		return nil, err
	}
	c := NewCatalog(s)
	c.path = path
	return c, nil
}

func (c *Catalog) Get() Selectors {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	s, err := LoadSelectors(c.path)
	if err != nil {
		metrics.SelectorReloads.WithLabelValues("error").Inc()
		return err
	}
	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()
	metrics.SelectorReloads.WithLabelValues("ok").Inc()
	return nil
}

// Watch reloads the catalog whenever its file changes. The parent directory
// is watched because editors and config-map mounts replace files by rename.
// It blocks until done is closed. A bad file keeps the previous selectors.
func (c *Catalog) Watch(done <-chan struct{}, onErr func(error)) error {
	if c.path == "" {
		<-done
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	name := filepath.Clean(c.path)

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := c.Reload(); err != nil && onErr != nil {
					onErr(err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
