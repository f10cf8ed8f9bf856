package monitor

import "strings"

// Default page markers observed on the EDP benefits portal. Page content is
// untyped and may change without notice; the classifier degrades to Unknown
// rather than guess.
var (
	defaultSoldOutMarkers   = []string{"esgotad", "volte no próximo"}
	defaultAvailableMarkers = []string{"gerar código"}
	defaultLoginMarkers     = []string{"login", "iniciar"}
)

// DefaultShortPageThreshold is the page-length heuristic below which login
// markers are trusted. Login pages are short; the logged-in portal is not.
const DefaultShortPageThreshold = 500

// Classifier maps fetched page content to a closed set of semantic states.
// It holds no state between classifications.
type Classifier struct {
	soldOutMarkers     []string
	availableMarkers   []string
	loginMarkers       []string
	shortPageThreshold int
}

// NewClassifier builds a Classifier with the default portal markers and the
// given short-page threshold. A threshold <= 0 selects the default.
func NewClassifier(shortPageThreshold int) *Classifier {
	if shortPageThreshold <= 0 {
		shortPageThreshold = DefaultShortPageThreshold
	}
	return &Classifier{
		soldOutMarkers:     defaultSoldOutMarkers,
		availableMarkers:   defaultAvailableMarkers,
		loginMarkers:       defaultLoginMarkers,
		shortPageThreshold: shortPageThreshold,
	}
}

// Classify maps the voucher detail page text to a CheckResult. The decision
// order is a policy choice: sold-out wins over available so that a page
// carrying both markers never triggers a false availability alert.
func (c *Classifier) Classify(pageText, currentURL string) CheckResult {
	_ = currentURL // reserved for future URL-based rules
	text := strings.ToLower(pageText)

	if marker, ok := c.firstMatch(text, c.soldOutMarkers); ok {
		return CheckResult{Availability: AvailabilitySoldOut, Reason: ReasonExhausted, Snippet: marker}
	}
	if marker, ok := c.firstMatch(text, c.availableMarkers); ok {
		return CheckResult{Availability: AvailabilityAvailable, Reason: ReasonReady, Snippet: marker}
	}
	if _, ok := c.firstMatch(text, c.loginMarkers); ok && len(text) < c.shortPageThreshold {
		return CheckResult{Availability: AvailabilityUnknown, Reason: ReasonLoginRequired}
	}
	return CheckResult{Availability: AvailabilityUnknown, Reason: ReasonIndeterminate, Snippet: snippet(text)}
}

// ClassifyMissingTarget maps the listing page text to a CheckResult when the
// target element could not be located at all.
func (c *Classifier) ClassifyMissingTarget(pageText string) CheckResult {
	text := strings.ToLower(pageText)
	if _, ok := c.firstMatch(text, c.loginMarkers); ok {
		return CheckResult{Availability: AvailabilityUnknown, Reason: ReasonLoginRequired}
	}
	return CheckResult{Availability: AvailabilityUnknown, Reason: ReasonTargetNotFound, Snippet: snippet(text)}
}

func (c *Classifier) firstMatch(text string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}

const maxSnippetLen = 120

func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxSnippetLen {
		return text
	}
	return string(runes[:maxSnippetLen])
}
