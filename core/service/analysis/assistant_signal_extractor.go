// Package analysis implements the deterministic email scoring pipeline:
// signal extraction, urgency/relevance/spam scoring, classification, and
// explanation.
package analysis

import "strings"

// =============================================================================
// Curated Phrase Lists
// =============================================================================

// Phrase lists scanned by the extractor. List order is preserved in match
// output; a phrase appearing in two lists counts once per list.
var (
	urgentPhrases = []string{
		"urgent",
		"asap",
		"as soon as possible",
		"emergency",
		"immediately",
		"immediate attention",
		"critical",
		"right away",
		"need response",
		"need help now",
		"water leak",
		"gas leak",
		"burst pipe",
		"flooding",
		"no heat",
		"no power",
	}

	invoicePhrases = []string{
		"invoice",
		"payment",
		"bill",
		"billing",
		"paid",
		"overdue",
		"balance due",
	}

	businessPhrases = []string{
		"quote",
		"estimate",
		"job",
		"project",
		"schedule",
		"appointment",
		"site visit",
		"come out",
		"take a look",
		"contract",
		"proposal",
		"new customer",
		"referral",
	}

	adminPhrases = []string{
		"newsletter",
		"subscription",
		"receipt",
		"statement",
		"order confirmation",
		"confirmation",
		"reminder",
		"notification",
		"account update",
		"terms of service",
	}

	spamPhrases = []string{
		"click here",
		"limited time",
		"act now",
		"winner",
		"congratulations",
		"you have been selected",
		"free money",
		"no obligation",
		"special offer",
		"risk free",
		"100% guaranteed",
	}

	sitePhrases  = []string{"site visit", "come out", "take a look", "stop by", "swing by"}
	quotePhrases = []string{"quote", "estimate", "proposal", "how much", "pricing"}

	followUpPhrases = []string{"follow up", "following up"}

	responsePhrases = []string{
		"please respond",
		"please reply",
		"please confirm",
		"action required",
		"let me know",
		"get back to me",
		"can you",
		"could you",
	}
)

// webmailDomains is the personal-address denylist for the relevance bonus.
var webmailDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"aol.com":        true,
	"icloud.com":     true,
	"protonmail.com": true,
	"mail.com":       true,
}

// =============================================================================
// Signal Extractor
// =============================================================================

// SignalSet holds the phrases matched per list, list order preserved.
type SignalSet struct {
	Urgent   []string
	Invoice  []string
	Business []string
	Admin    []string
	Spam     []string
}

// All flattens the set in list order: urgent, invoice, business, admin, spam.
func (s SignalSet) All() []string {
	out := make([]string, 0, len(s.Urgent)+len(s.Invoice)+len(s.Business)+len(s.Admin)+len(s.Spam))
	out = append(out, s.Urgent...)
	out = append(out, s.Invoice...)
	out = append(out, s.Business...)
	out = append(out, s.Admin...)
	out = append(out, s.Spam...)
	return out
}

// Extractor scans normalized text against the curated phrase lists.
// Matching is case-insensitive substring containment. No side effects;
// empty text yields an empty set, never an error.
type Extractor struct{}

// NewExtractor creates a signal extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns every matched phrase across the four lists, flattened in
// list order with per-list dedup.
func (e *Extractor) Extract(text string) []string {
	return e.ExtractSignals(text).All()
}

// ExtractSignals returns the per-list matches for the scorers.
func (e *Extractor) ExtractSignals(text string) SignalSet {
	if text == "" {
		return SignalSet{}
	}
	lower := strings.ToLower(text)
	return SignalSet{
		Urgent:   matchList(lower, urgentPhrases),
		Invoice:  matchList(lower, invoicePhrases),
		Business: matchList(lower, businessPhrases),
		Admin:    matchList(lower, adminPhrases),
		Spam:     matchList(lower, spamPhrases),
	}
}

func matchList(lower string, phrases []string) []string {
	var matched []string
	seen := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		if seen[p] {
			continue
		}
		if strings.Contains(lower, p) {
			matched = append(matched, p)
			seen[p] = true
		}
	}
	return matched
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// isEmergencyPhrase reports whether an urgent phrase denotes a physical
// emergency (leaks, outages) rather than generic urgency wording.
func isEmergencyPhrase(phrase string) bool {
	return strings.Contains(phrase, "emergency") || strings.Contains(phrase, "leak")
}

func extractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
