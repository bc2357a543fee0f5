package engine

import "testing"

func TestExtractTotalAmountKeywordLine(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "grand total wins over earlier numbers",
			text: "Item A 120.00\nItem B 80.00\nSubtotal 200.00\nGST 36.00\nGrand Total 236.00",
			want: 236,
		},
		{
			name: "total amount with currency marker",
			text: "Milk 45\nBread 30\nTotal Amount: ₹75.00",
			want: 75,
		},
		{
			name: "amount payable",
			text: "Amount Payable Rs. 1,499.50\nThank you",
			want: 1499.50,
		},
		{
			name: "balance due",
			text: "balance due 320",
			want: 320,
		},
		{
			name: "thousands separators stripped",
			text: "NET TOTAL 12,345.67",
			want: 12345.67,
		},
		{
			name: "bottom-up scan prefers the later total line",
			text: "Total: 100\nsome items\nTotal: 250",
			want: 250,
		},
		{
			name: "keyword line without a number falls through to an earlier one",
			text: "Total: 900\nGrand Total\n",
			want: 900,
		},
		{
			name: "keyword match is case-insensitive",
			text: "gRaNd ToTaL 42",
			want: 42,
		},
		{
			name: "plain multi-digit amount is taken whole, not truncated",
			text: "Spice Villa Restaurant\nGrand Total: 2450",
			want: 2450,
		},
		{
			name: "plain decimal amount is taken whole",
			text: "Total: 1499.50",
			want: 1499.50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTotalAmount(tt.text); got != tt.want {
				t.Errorf("ExtractTotalAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractTotalAmountCurrencyFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "last currency-marked number wins",
			text: "Dosa ₹120\nCoffee ₹40\nTo pay ₹160",
			want: 160,
		},
		{
			name: "rs prefix with dot",
			text: "paid rs. 350 cash\nthanks",
			want: 350,
		},
		{
			name: "rs prefix without dot and with colon",
			text: "due RS: 1,200",
			want: 1200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTotalAmount(tt.text); got != tt.want {
				t.Errorf("ExtractTotalAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractTotalAmountLargestNumberFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "maximum plausible token",
			text: "2 x 45.00\n1 x 250.00\n3 x 15.00",
			want: 250,
		},
		{
			name: "phone numbers are ignored",
			text: "Call 9876543210 for delivery\nsnacks 85",
			want: 85,
		},
		{
			name: "values above one million are ignored",
			text: "ref 2000000\nitem 49.99",
			want: 49.99,
		},
		{
			name: "values below one are ignored",
			text: "discount 0.5\npacket 12",
			want: 12,
		},
		{
			name: "no digits at all",
			text: "thank you, visit again",
			want: 0,
		},
		{name: "empty text", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t\n ", want: 0},
	}

	// The bare scan must see a phone number as one 10-digit token, not as
	// 3-digit fragments that would slip past the identifier exclusion.
	if toks := bareNumber.FindAllString("9876543210", -1); len(toks) != 1 || toks[0] != "9876543210" {
		t.Errorf("bareNumber tokenized phone number as %v, want one whole token", toks)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTotalAmount(tt.text); got != tt.want {
				t.Errorf("ExtractTotalAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractTotalAmountStrategyPriority(t *testing.T) {
	// A keyword line beats a later currency-marked figure, and a currency
	// marker beats a larger bare number.
	text := "big code 999999\nTotal: 150\n₹500 cashback offer"
	if got := ExtractTotalAmount(text); got != 150 {
		t.Errorf("keyword strategy should win, got %v", got)
	}

	text = "big code 999999\npaid ₹500"
	if got := ExtractTotalAmount(text); got != 500 {
		t.Errorf("currency strategy should beat largest-number, got %v", got)
	}
}

func TestIsIdentifierRun(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"9876543210", true},
		{"987654321", false},       // 9 digits
		{"1,234,567,890", false},   // separators present
		{"1234567890.00", false},   // decimal point present
		{"42", false},
	}
	for _, tt := range tests {
		if got := isIdentifierRun(tt.tok); got != tt.want {
			t.Errorf("isIdentifierRun(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}
