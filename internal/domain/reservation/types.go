package reservation

import "strings"

const (
	MinPartySize = 1
	MaxPartySize = 40
)

// AvailabilityQuery is the immutable input of both public operations.
// Date is YYYY-MM-DD and Time is HH:MM in restaurant-local time.
type AvailabilityQuery struct {
	Date      string
	Time      string
	PartySize int
}

type AvailabilityResult struct {
	Available bool `json:"available"`
	// Nil when the date itself is not bookable.
	AvailableTimes []string `json:"availableTimes,omitempty"`
	Message        string   `json:"message"`
	Outcome        Outcome  `json:"outcome"`
}

type Civility string

const (
	CivilityMr  Civility = "mr"
	CivilityMrs Civility = "mrs"
	CivilityMx  Civility = "mx"
)

var honorifics = map[string]Civility{
	"sr":   CivilityMr,
	"sr.":  CivilityMr,
	"mr":   CivilityMr,
	"mr.":  CivilityMr,
	"sra":  CivilityMrs,
	"sra.": CivilityMrs,
	"mrs":  CivilityMrs,
	"mrs.": CivilityMrs,
	"ms":   CivilityMrs,
	"ms.":  CivilityMrs,
	"mx":   CivilityMx,
	"mx.":  CivilityMx,
}

// CivilityFor maps a free-text honorific onto the widget's closed set.
// Unknown or empty input yields CivilityMr.
func CivilityFor(honorific string) Civility {
	if c, ok := honorifics[strings.ToLower(strings.TrimSpace(honorific))]; ok {
		return c
	}
	return CivilityMr
}

type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	// May carry a +34 or 34 prefix; see NormalizePhone.
	Phone     string
	Honorific string

	// Infant is nil when the caller did not say either way.
	Infant          *bool
	Allergies       string
	SpecialRequests string
}

func (c CustomerInfo) Civility() Civility { return CivilityFor(c.Honorific) }

// NotesSummary folds the optional infant and allergy notes into one line,
// for callers whose outbound channel only carries a single free-text field.
func (c CustomerInfo) NotesSummary() string {
	var parts []string
	if c.Infant != nil && *c.Infant {
		parts = append(parts, "Con bebé")
	}
	if a := strings.TrimSpace(c.Allergies); a != "" {
		parts = append(parts, "Alergias: "+a)
	}
	if s := strings.TrimSpace(c.SpecialRequests); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ". ")
}

// NormalizePhone drops whitespace and strips a leading Spanish country
// code. The widget already preselects +34 so the prefix would be typed twice
// otherwise. A national number that itself starts with 34 after a +34
// prefix loses those digits on a second pass too.
func NormalizePhone(phone string) string {
	phone = strings.Join(strings.Fields(phone), "")
	switch {
	case strings.HasPrefix(phone, "+34"):
		return phone[3:]
	case strings.HasPrefix(phone, "34"):
		return phone[2:]
	}
	return phone
}

// ClampPartySize bounds n to what the widget's party-size control offers.
func ClampPartySize(n int) int {
	if n < MinPartySize {
		return MinPartySize
	}
	if n > MaxPartySize {
		return MaxPartySize
	}
	return n
}

type ConfirmationSource string

const (
	// ConfirmationLocal marks an identifier minted by this process after a
	// success page was detected. It is not a reference the widget knows.
	ConfirmationLocal ConfirmationSource = "local"
)

type ReservationResult struct {
	Success            bool               `json:"success"`
	ConfirmationNumber string             `json:"confirmationNumber,omitempty"`
	ConfirmationSource ConfirmationSource `json:"confirmationSource,omitempty"`
	Message            string             `json:"message"`
	Outcome            Outcome            `json:"outcome"`
}
