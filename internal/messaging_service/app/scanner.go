package app

import (
	"regexp"
	"strings"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// Match is one detected span. Text carries the original casing so the
// redactor can splice it back out of the message.
type Match struct {
	Kind domain.ViolationKind
	Text string
}

// Verdict is the scanner's decision for one message body. Same input text
// always yields the same verdict; the scanner holds no state and touches
// no I/O.
type Verdict struct {
	Allowed      bool
	Reasons      []domain.ViolationKind
	RedactedText string
	Matches      []Match
}

var (
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}\b`),
		regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10,15}\b`),
	}

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bhttps?://[^\s]+`),
		regexp.MustCompile(`(?i)\bwww\.[^\s]+\.[a-z]{2,}[^\s]*`),
		regexp.MustCompile(`(?i)\b[a-z0-9-]+\.[a-z]{2,}/[^\s]*`),
	}

	// An @handle not glued onto an email's local part. Group 2 is the handle.
	handlePattern = regexp.MustCompile(`(^|[^A-Za-z0-9._%+-])(@[A-Za-z][A-Za-z0-9_.]{2,})`)

	platformKeywords = []string{
		"instagram", "insta",
		"snapchat",
		"whatsapp", "whats app",
		"telegram",
		"facebook",
		"tiktok",
		"twitter",
	}

	directContactPhrases = []string{
		"text me directly",
		"call my cell",
		"text me", "txt me",
		"call me",
		"dm me", "pm me",
		"direct message",
		"private message",
		"hit me up",
		"reach out",
		"contact me",
		"my number", "my phone", "my email",
		"find me on",
		"take it offline",
		"off the app", "outside the app",
	}

	platformPatterns = compilePhrasePatterns(platformKeywords)
	phrasePatterns   = compilePhrasePatterns(directContactPhrases)
)

func compilePhrasePatterns(phrases []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		// Phrases match case-insensitively with flexible whitespace.
		expr := `(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(p), ` `, `\s+`) + `\b`
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

// PolicyScanner is the anti-poaching content scanner. It inspects message
// text for contact-sharing attempts: phone numbers, emails, URLs, social
// handles, and off-platform contact phrases.
type PolicyScanner struct{}

func NewPolicyScanner() *PolicyScanner {
	return &PolicyScanner{}
}

// Scan evaluates every detector independently; a message can carry several
// violation kinds at once. The returned RedactedText masks each matched
// span so audit UIs never display raw contact information.
func (s *PolicyScanner) Scan(text string) Verdict {
	var matches []Match

	matches = append(matches, scanPhones(text)...)
	matches = append(matches, scanEmails(text)...)
	matches = append(matches, scanURLs(text)...)
	matches = append(matches, scanSocial(text)...)
	matches = append(matches, scanPhrases(text)...)

	if len(matches) == 0 {
		return Verdict{Allowed: true, RedactedText: text}
	}

	return Verdict{
		Allowed:      false,
		Reasons:      distinctKinds(matches),
		RedactedText: redact(text, matches),
		Matches:      matches,
	}
}

func scanPhones(text string) []Match {
	seen := map[string]bool{}
	var out []Match
	for _, p := range phonePatterns {
		for _, m := range p.FindAllString(text, -1) {
			digits := digitsOnly(m)
			if len(digits) < 10 || len(digits) > 15 {
				continue
			}
			m = strings.TrimSpace(m)
			if !seen[m] {
				seen[m] = true
				out = append(out, Match{Kind: domain.ViolationPhoneNumber, Text: m})
			}
		}
	}
	return out
}

func scanEmails(text string) []Match {
	var out []Match
	for _, m := range emailPattern.FindAllString(text, -1) {
		out = append(out, Match{Kind: domain.ViolationEmail, Text: m})
	}
	return out
}

func scanURLs(text string) []Match {
	seen := map[string]bool{}
	var out []Match
	for _, p := range urlPatterns {
		for _, m := range p.FindAllString(text, -1) {
			// Emails match the bare-domain pattern; they are not URLs.
			if strings.Contains(m, "@") {
				continue
			}
			m = strings.TrimRight(m, ".,;!?)")
			if !seen[m] {
				seen[m] = true
				out = append(out, Match{Kind: domain.ViolationURL, Text: m})
			}
		}
	}
	return out
}

// scanSocial fires when a platform keyword appears; any nearby @handle is
// captured alongside it so redaction masks both.
func scanSocial(text string) []Match {
	var out []Match
	keywordHit := false
	for _, p := range platformPatterns {
		for _, m := range p.FindAllString(text, -1) {
			keywordHit = true
			out = append(out, Match{Kind: domain.ViolationSocialHandle, Text: m})
		}
	}
	if !keywordHit {
		return nil
	}
	for _, groups := range handlePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, Match{Kind: domain.ViolationSocialHandle, Text: groups[2]})
	}
	return out
}

func scanPhrases(text string) []Match {
	seen := map[string]bool{}
	var out []Match
	for _, p := range phrasePatterns {
		for _, m := range p.FindAllString(text, -1) {
			key := strings.ToLower(m)
			if !seen[key] {
				seen[key] = true
				out = append(out, Match{Kind: domain.ViolationDirectContactPhrase, Text: m})
			}
		}
	}
	return out
}

// redact masks every matched span. Phones keep their last four digits,
// emails keep the domain, URLs keep the host; everything else becomes
// [REDACTED]. Longer spans are replaced first so "text me directly" wins
// over its embedded "text me".
func redact(text string, matches []Match) string {
	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if len(ordered[j].Text) > len(ordered[i].Text) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	redacted := text
	for _, m := range ordered {
		var replacement string
		switch m.Kind {
		case domain.ViolationPhoneNumber:
			digits := digitsOnly(m.Text)
			replacement = "***-***-" + digits[len(digits)-4:]
		case domain.ViolationEmail:
			if i := strings.LastIndex(m.Text, "@"); i >= 0 {
				replacement = "***" + m.Text[i:]
			} else {
				replacement = "[REDACTED]"
			}
		case domain.ViolationURL:
			replacement = "***" + urlHost(m.Text)
		default:
			replacement = "[REDACTED]"
		}
		redacted = strings.ReplaceAll(redacted, m.Text, replacement)
	}
	return redacted
}

func urlHost(raw string) string {
	host := raw
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return host
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func distinctKinds(matches []Match) []domain.ViolationKind {
	order := []domain.ViolationKind{
		domain.ViolationPhoneNumber,
		domain.ViolationEmail,
		domain.ViolationURL,
		domain.ViolationSocialHandle,
		domain.ViolationDirectContactPhrase,
	}
	present := map[domain.ViolationKind]bool{}
	for _, m := range matches {
		present[m.Kind] = true
	}
	var out []domain.ViolationKind
	for _, k := range order {
		if present[k] {
			out = append(out, k)
		}
	}
	return out
}

// WarningMessage builds the sender-facing explanation attached to a block
// response. It is never delivered over SMS; a blocked send makes no
// provider calls.
func (s *PolicyScanner) WarningMessage(kinds []domain.ViolationKind) string {
	var b strings.Builder
	b.WriteString("For your safety and ours, personal contact information can't be shared through this messaging system. ")
	offPlatformSaid := false
	for _, k := range kinds {
		switch k {
		case domain.ViolationPhoneNumber:
			b.WriteString("Please don't include phone numbers. ")
		case domain.ViolationEmail:
			b.WriteString("Please don't include email addresses. ")
		case domain.ViolationURL:
			b.WriteString("Please don't include external links. ")
		case domain.ViolationSocialHandle, domain.ViolationDirectContactPhrase:
			if !offPlatformSaid {
				b.WriteString("Please don't request contact outside the platform. ")
				offPlatformSaid = true
			}
		}
	}
	b.WriteString("If you need help, contact the business directly through this thread.")
	return b.String()
}
