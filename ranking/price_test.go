package ranking

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"indian grouping", "₹45,999.00", "45999", true},
		{"indian lakh grouping", "₹ 1,29,999", "129999", true},
		{"us format", "$1,299.99", "1299.99", true},
		{"european dot thousands", "1.299,99 €", "1299.99", true},
		{"european space thousands", "1 299,99 €", "1299.99", true},
		{"swiss apostrophe", "CHF 1'299.00", "1299", true},
		{"plain integer", "79900", "79900", true},
		{"prefixed code", "Rs. 45,999", "45999", true},
		{"sale price after strike-through", "₹89,900 ₹79,900", "79900", true},
		{"lone comma thousands", "1,299", "1299", true},
		{"lone comma decimal", "12,99", "12.99", true},
		{"lone dot thousands", "1.299", "1299", true},
		{"lone dot decimal", "12.99", "12.99", true},
		{"malformed double dot", "1.299.99", "1299.99", true},
		{"no digits", "price on request", "", false},
		{"empty", "", "", false},
		{"only currency", "₹", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.text)
			if ok != tt.ok {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.text, got.String(), tt.want)
			}
		})
	}
}

func TestParseAmount_Deterministic(t *testing.T) {
	first, ok := ParseAmount("₹45,999.00")
	if !ok {
		t.Fatal("parse failed")
	}
	for i := 0; i < 100; i++ {
		got, ok := ParseAmount("₹45,999.00")
		if !ok || !got.Equal(first) {
			t.Fatalf("iteration %d: got %s ok=%v, want %s", i, got, ok, first)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint string
		want string
	}{
		{"hint wins", "$1,299.99", "INR", "INR"},
		{"hint symbol", "1299", "₹", "INR"},
		{"unknown hint passed through", "1299", "chf", "CHF"},
		{"rupee symbol", "₹79,900", "", "INR"},
		{"rs prefix", "Rs. 45,999", "", "INR"},
		{"dollar", "$1,299.99", "", "USD"},
		{"canadian before plain dollar", "C$129.99", "", "CAD"},
		{"euro", "1.299,99 €", "", "EUR"},
		{"pound", "£999", "", "GBP"},
		{"dirham code", "AED 4,699", "", "AED"},
		{"iso code in text", "4699 sek", "", "SEK"},
		{"nothing", "79900", "", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCurrency(tt.text, tt.hint); got != tt.want {
				t.Errorf("DetectCurrency(%q, %q) = %q, want %q", tt.text, tt.hint, got, tt.want)
			}
		})
	}
}
