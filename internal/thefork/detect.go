package thefork

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/forkbridge/internal/browser"
)

// Signal names which heuristic recognised a confirmation page.
type Signal string

const (
	SignalNone   Signal = ""
	SignalMarker Signal = "marker"
	SignalText   Signal = "text"
)

// DetectConfirmation is a best-effort reading of the page after the book
// click. The widget exposes no booking reference, so a positive answer
// means the page looks like a success page and nothing more.
func DetectConfirmation(html string, sel Selectors) (bool, Signal) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, SignalNone
	}
	if doc.Find(browser.TestIDSelector(sel.SuccessMarker)).Length() > 0 {
		return true, SignalMarker
	}
	body := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range sel.ConfirmationPhrases {
		if phrase != "" && strings.Contains(body, strings.ToLower(phrase)) {
			return true, SignalText
		}
	}
	return false, SignalNone
}
