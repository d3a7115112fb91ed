package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already e164", input: "+15551234567", want: "+15551234567"},
		{name: "bare 10 digits", input: "5558675309", want: "+15558675309"},
		{name: "dashed", input: "555-867-5309", want: "+15558675309"},
		{name: "dotted", input: "555.867.5309", want: "+15558675309"},
		{name: "parens and space", input: "(555) 867-5309", want: "+15558675309"},
		{name: "11 digits with country code", input: "15558675309", want: "+15558675309"},
		{name: "plus with spaces", input: "+1 555 867 5309", want: "+15558675309"},
		{name: "international", input: "+442071838750", want: "+442071838750"},
		{name: "surrounding whitespace", input: "  +15551234567 ", want: "+15551234567"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "too short", input: "867-5309", wantErr: true},
		{name: "11 digits not starting with 1", input: "25558675309", wantErr: true},
		{name: "letters", input: "call-me-maybe", wantErr: true},
		{name: "plus but too few digits", input: "+1555", wantErr: true},
		{name: "plus with leading zero country code", input: "+05551234567", wantErr: true},
		{name: "too many digits", input: "+1234567890123456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeE164(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation), "normalization failures are validation errors")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
