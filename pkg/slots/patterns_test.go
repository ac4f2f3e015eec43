package slots

import "testing"

func TestExtractPatterns(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		pending []string
		want    map[string]string
	}{
		{
			name:    "lakh amount with year tenure",
			text:    "I need 10 lakhs for 5 years",
			pending: []string{"amount", "tenure", "interest_rate"},
			want:    map[string]string{"amount": "1000000", "tenure": "60"},
		},
		{
			name:    "crore amount",
			text:    "a corpus of 1.5 crores",
			pending: []string{"amount"},
			want:    map[string]string{"amount": "15000000"},
		},
		{
			name:    "plain large number as amount",
			text:    "around 500000 should do",
			pending: []string{"amount"},
			want:    map[string]string{"amount": "500000"},
		},
		{
			name:    "bare number answers tenure question",
			text:    "24",
			pending: []string{"tenure"},
			want:    map[string]string{"tenure": "24"},
		},
		{
			name:    "month unit kept as months",
			text:    "for 18 months please",
			pending: []string{"tenure"},
			want:    map[string]string{"tenure": "18"},
		},
		{
			name:    "interest rate with percent sign",
			text:    "they quoted 10.5% per annum",
			pending: []string{"interest_rate"},
			want:    map[string]string{"interest_rate": "10.5"},
		},
		{
			name:    "loan type",
			text:    "a personal loan would be great",
			pending: []string{"loan_type"},
			want:    map[string]string{"loan_type": "personal"},
		},
		{
			name:    "card type",
			text:    "I mostly care about cashback",
			pending: []string{"card_type"},
			want:    map[string]string{"card_type": "cashback"},
		},
		{
			name:    "currency code uppercased",
			text:    "need eur for my europe trip",
			pending: []string{"currency", "amount"},
			want:    map[string]string{"currency": "EUR"},
		},
		{
			name:    "transaction id",
			text:    "the charge is txn-20240111-884",
			pending: []string{"transaction_id", "description"},
			want:    map[string]string{"transaction_id": "TXN-20240111-884"},
		},
		{
			name:    "immediate block request",
			text:    "block it immediately",
			pending: []string{"transaction_id"},
			want:    map[string]string{"transaction_id": "immediate"},
		},
		{
			name:    "income behaves like amount",
			text:    "my income is 8 lakhs per year",
			pending: []string{"income", "card_type"},
			want:    map[string]string{"income": "800000"},
		},
		{
			name:    "non-pending slots are ignored",
			text:    "I need 10 lakhs for 5 years",
			pending: []string{"currency"},
			want:    map[string]string{},
		},
		{
			name:    "nothing recognizable",
			text:    "i want a forex card",
			pending: []string{"currency", "amount"},
			want:    map[string]string{},
		},
		{
			name:    "huge bare number is not a tenure",
			text:    "100000",
			pending: []string{"tenure"},
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPatterns(tt.text, tt.pending)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractPatterns() = %v, want %v", got, tt.want)
			}
			for slot, want := range tt.want {
				if got[slot] != want {
					t.Errorf("slot %s = %q, want %q", slot, got[slot], want)
				}
			}
		})
	}
}

func TestParseCorrections(t *testing.T) {
	known := map[string]bool{"amount": true, "tenure": true, "currency": true}

	tests := []struct {
		name      string
		utterance string
		want      map[string]string
	}{
		{
			name:      "change to form",
			utterance: "actually change the amount to 750000",
			want:      map[string]string{"amount": "750000"},
		},
		{
			name:      "colon form",
			utterance: "tenure: 36",
			want:      map[string]string{"tenure": "36"},
		},
		{
			name:      "unknown slot rejected",
			utterance: "change the color to blue",
			want:      map[string]string{},
		},
		{
			name:      "plain answer is not a correction",
			utterance: "36 months",
			want:      map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCorrections(tt.utterance, known)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCorrections() = %v, want %v", got, tt.want)
			}
			for slot, want := range tt.want {
				if got[slot] != want {
					t.Errorf("slot %s = %q, want %q", slot, got[slot], want)
				}
			}
		})
	}
}
