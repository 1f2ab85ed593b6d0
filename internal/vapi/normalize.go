package vapi

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/example/forkbridge/internal/domain/reservation"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidPartySize = errors.New("invalid party size")
	// The widget's phone field is required and calls without caller ID
	// carry no number.
	ErrMissingPhone = errors.New("missing customer phone number")
)

const isoDate = "2006-01-02"

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	spokenRe   = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-z]+)(?:\s+(?:de(?:l)?\s+)?(\d{4}))?`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::|h)(\d{2})(?::(\d{2}))?$`)
	hourOnlyRe = regexp.MustCompile(`^(\d{1,2})h$`)
)

// fold lowercases s and strips diacritics, so "Miércoles" and "miercoles"
// compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// NormalizeDate turns an ISO or spoken Spanish date ("3 de diciembre") into
// YYYY-MM-DD relative to now. A year before now's is treated as a mistake:
// the date moves to the current year, or the next one if that day already
// passed. A spoken date without a year resolves the same way. Input naming
// only a month is rejected since the day cannot be guessed.
func NormalizeDate(s string, now time.Time) (string, error) {
	in := fold(s)
	if m := isoRe.FindStringSubmatch(in); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return resolve(y, time.Month(mo), d, now, s)
	}
	if m := spokenRe.FindStringSubmatch(in); m != nil {
		mo, ok := months[m[2]]
		if !ok {
			return "", fmt.Errorf("%w: unknown month %q", ErrInvalidDate, m[2])
		}
		d, _ := strconv.Atoi(m[1])
		y := 0
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
		}
		return resolve(y, mo, d, now, s)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// resolve applies the year correction. y == 0 means no year was given.
func resolve(y int, mo time.Month, d int, now time.Time, orig string) (string, error) {
	if mo < time.January || mo > time.December || d < 1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, orig)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if y < now.Year() {
		y = now.Year()
		if !validDay(y, mo, d) && !validDay(y+1, mo, d) {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, orig)
		}
		if !validDay(y, mo, d) || time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Before(today) {
			y++
		}
	}
	if !validDay(y, mo, d) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, orig)
	}
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Format(isoDate), nil
}

// validDay rejects dates time.Date would silently roll over, like 31 April.
func validDay(y int, mo time.Month, d int) bool {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && t.Month() == mo && t.Day() == d
}

// NormalizeTime accepts H:MM, HH:MM, HH:MM:SS, "20h30" and "20h" and returns
// HH:MM.
func NormalizeTime(s string) (string, error) {
	in := fold(s)
	var h, m int
	switch {
	case clockRe.MatchString(in):
		p := clockRe.FindStringSubmatch(in)
		h, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
		if p[3] != "" {
			if sec, _ := strconv.Atoi(p[3]); sec > 59 {
				return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
			}
		}
	case hourOnlyRe.MatchString(in):
		h, _ = strconv.Atoi(hourOnlyRe.FindStringSubmatch(in)[1])
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h > 23 || m > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// NormalizePartySize accepts whole numbers between 1 and 99. Sizes above
// what the widget offers are clamped later, at selection time.
func NormalizePartySize(n float64) (int, error) {
	if n <= 0 || n >= 100 || n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPartySize, n)
	}
	return int(n), nil
}

func buildQuery(date, clock string, people float64, now time.Time) (reservation.AvailabilityQuery, error) {
	d, derr := NormalizeDate(date, now)
	t, terr := NormalizeTime(clock)
	p, perr := NormalizePartySize(people)
	if err := errors.Join(derr, terr, perr); err != nil {
		return reservation.AvailabilityQuery{}, err
	}
	return reservation.AvailabilityQuery{Date: d, Time: t, PartySize: p}, nil
}

// Query normalizes the assistant's arguments.
func (p AvailabilityParams) Query(now time.Time) (reservation.AvailabilityQuery, error) {
	return buildQuery(p.Fecha, p.Hora, p.Personas, now)
}

// Complete mirrors what a booking needs at minimum: a date, a time, a
// positive head count and a name.
func (r ReservationData) Complete() bool {
	return strings.TrimSpace(r.Date) != "" &&
		strings.TrimSpace(r.Time) != "" &&
		r.People > 0 &&
		strings.TrimSpace(r.FullName) != ""
}

// SplitName puts the first word in FirstName and the rest in LastName. The
// widget requires both, so a single word fills both fields.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Booking converts the report into the automation's inputs. email is used
// because calls do not collect one.
func (c *Completion) Booking(now time.Time, email string) (reservation.AvailabilityQuery, reservation.CustomerInfo, error) {
	r := c.Reservation
	q, err := buildQuery(r.Date, r.Time, r.People, now)
	if err != nil {
		return q, reservation.CustomerInfo{}, err
	}
	if reservation.NormalizePhone(c.Phone) == "" {
		return q, reservation.CustomerInfo{}, fmt.Errorf("%w: message.call.customer.number", ErrMissingPhone)
	}
	first, last := SplitName(r.FullName)
	return q, reservation.CustomerInfo{
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Phone:           c.Phone,
		Honorific:       r.Honorific,
		Infant:          r.Baby,
		Allergies:       r.Allergies,
		SpecialRequests: r.SpecialRequests,
	}, nil
}
