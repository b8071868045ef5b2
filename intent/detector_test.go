package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		text string
		want []Intent
	}{
		{
			name: "greeting",
			text: "Good morning Elena!",
			want: []Intent{IntentGreeting},
		},
		{
			name: "negotiation",
			text: "I would like to negotiate my salary.",
			want: []Intent{IntentNegotiation},
		},
		{
			name: "question outranks single matches",
			text: "What terms can you offer?",
			want: []Intent{IntentQuestion, IntentNegotiation},
		},
		{
			name: "proposal",
			text: "I think we should restructure the review cycle.",
			want: []Intent{IntentProposal},
		},
		{
			name: "agreement",
			text: "I agree, sounds good.",
			want: []Intent{IntentAgreement},
		},
		{
			name: "disagreement",
			text: "I don't think that's accurate.",
			want: []Intent{IntentDisagreement},
		},
		{
			name: "farewell",
			text: "Thanks, talk later.",
			want: []Intent{IntentFarewell},
		},
		{
			name: "request info",
			text: "Tell me about the compensation bands.",
			want: []Intent{IntentRequestInfo},
		},
		{
			name: "no match",
			text: "Mmm.",
			want: nil,
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text))
		})
	}
}

func TestDetect_TiesBreakLexicographically(t *testing.T) {
	d := NewDetector()

	// Both match with score 1, so ordering falls back to the intent name.
	got := d.Detect("Hello, I agree.")
	assert.Equal(t, []Intent{IntentAgreement, IntentGreeting}, got)
}

func TestDetectPrimary(t *testing.T) {
	d := NewDetector()

	assert.Equal(t, IntentQuestion, d.DetectPrimary("How are salary bands set?"))
	assert.Equal(t, IntentUnknown, d.DetectPrimary("Mmm."))
}

func TestStrings(t *testing.T) {
	assert.Nil(t, Strings(nil))
	assert.Equal(t, []string{"greeting", "question"},
		Strings([]Intent{IntentGreeting, IntentQuestion}))
}
