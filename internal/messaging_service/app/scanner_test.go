package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

func TestPolicyScannerClean(t *testing.T) {
	s := NewPolicyScanner()

	clean := []string{
		"On my way!",
		"Buddy had a great walk today, two potty breaks.",
		"Running 10 min late, sorry!",
		"The fee for tonight is $120.50, payable in the app.",
		"See you tomorrow at 3pm.",
	}
	for _, text := range clean {
		v := s.Scan(text)
		assert.True(t, v.Allowed, "expected %q to pass", text)
		assert.Empty(t, v.Reasons)
		assert.Equal(t, text, v.RedactedText, "clean text is returned untouched")
	}
}

func TestPolicyScannerPhoneNumbers(t *testing.T) {
	s := NewPolicyScanner()

	tests := []struct {
		text     string
		redacted string
	}{
		{"Let's connect at 555-867-5309", "Let's connect at ***-***-5309"},
		{"call (555) 867-5309 anytime", "call ***-***-5309 anytime"},
		{"my cell is 555.867.5309", "my cell is ***-***-5309"},
		{"+1 555 867 5309 works too", "***-***-5309 works too"},
		{"5558675309", "***-***-5309"},
	}
	for _, tt := range tests {
		v := s.Scan(tt.text)
		assert.False(t, v.Allowed, "expected %q to be blocked", tt.text)
		assert.Contains(t, v.Reasons, domain.ViolationPhoneNumber)
		assert.Equal(t, tt.redacted, v.RedactedText)
	}
}

func TestPolicyScannerEmail(t *testing.T) {
	s := NewPolicyScanner()

	v := s.Scan("reach me at jane.doe@example.com for details")
	require.False(t, v.Allowed)
	assert.Equal(t, []domain.ViolationKind{domain.ViolationEmail}, v.Reasons)
	assert.Equal(t, "reach me at ***@example.com for details", v.RedactedText)
}

func TestPolicyScannerURL(t *testing.T) {
	s := NewPolicyScanner()

	v := s.Scan("book direct at https://cheapsitters.example/save")
	require.False(t, v.Allowed)
	assert.Contains(t, v.Reasons, domain.ViolationURL)
	assert.Contains(t, v.RedactedText, "***cheapsitters.example")
	assert.NotContains(t, v.RedactedText, "https://")

	v = s.Scan("check www.mysite.com/book")
	require.False(t, v.Allowed)
	assert.Contains(t, v.Reasons, domain.ViolationURL)
	assert.Contains(t, v.RedactedText, "***www.mysite.com")
}

func TestPolicyScannerSocialAndPhrases(t *testing.T) {
	s := NewPolicyScanner()

	v := s.Scan("find me on instagram @pawlover99")
	require.False(t, v.Allowed)
	assert.Contains(t, v.Reasons, domain.ViolationSocialHandle)
	assert.Contains(t, v.Reasons, domain.ViolationDirectContactPhrase)
	assert.NotContains(t, v.RedactedText, "@pawlover99")
	assert.NotContains(t, v.RedactedText, "instagram")

	v = s.Scan("just text me directly next time")
	require.False(t, v.Allowed)
	assert.Equal(t, []domain.ViolationKind{domain.ViolationDirectContactPhrase}, v.Reasons)
	assert.Contains(t, v.RedactedText, "[REDACTED]")
	assert.NotContains(t, v.RedactedText, "text me")
}

func TestPolicyScannerMultipleReasons(t *testing.T) {
	s := NewPolicyScanner()

	v := s.Scan("Call me at 555-867-5309 or jane@example.com")
	require.False(t, v.Allowed)
	assert.Equal(t, []domain.ViolationKind{
		domain.ViolationPhoneNumber,
		domain.ViolationEmail,
		domain.ViolationDirectContactPhrase,
	}, v.Reasons, "every detector that fired is listed, in stable order")
}

func TestPolicyScannerIdempotent(t *testing.T) {
	s := NewPolicyScanner()

	text := "Call me at 555-867-5309, or find me on snapchat"
	first := s.Scan(text)
	second := s.Scan(text)
	assert.Equal(t, first, second, "same input yields identical verdicts")
}

func TestWarningMessage(t *testing.T) {
	s := NewPolicyScanner()

	msg := s.WarningMessage([]domain.ViolationKind{
		domain.ViolationPhoneNumber,
		domain.ViolationSocialHandle,
		domain.ViolationDirectContactPhrase,
	})
	assert.Contains(t, msg, "phone numbers")
	assert.Contains(t, msg, "outside the platform")
	// Social handle and contact phrase share one sentence, not two.
	assert.Equal(t, 1, countOccurrences(msg, "outside the platform"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
