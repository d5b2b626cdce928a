package export

import "testing"

func TestOrderPaymentMethod(t *testing.T) {
	tests := []struct {
		gateway string
		want    string
	}{
		{"swedbank_pay_card", "Credit Card"},
		{"swedbank_pay_swish", "Swish"},
		{"swedbank_pay_trustly", "Internet Banking"},
		{"unhcr_onsite_invoice", "PGBG OCR"},
		{"paypal", "Other"},
		{"", "Other"},
	}
	for _, tt := range tests {
		order := &Order{PaymentGateway: tt.gateway}
		if got := order.PaymentMethod(); got != tt.want {
			t.Errorf("PaymentMethod(%q) = %q, want %q", tt.gateway, got, tt.want)
		}
	}

	var missing *Order
	if got := missing.PaymentMethod(); got != "Other" {
		t.Errorf("PaymentMethod on missing order = %q, want Other", got)
	}
}

func TestOrderUTM(t *testing.T) {
	order := &Order{Attribution: Attribution{Source: "s", Medium: "m", Campaign: "c", Content: "n", Term: "t"}}
	if got := order.UTM(); got != order.Attribution {
		t.Errorf("UTM = %+v", got)
	}

	var missing *Order
	if got := missing.UTM(); got != (Attribution{}) {
		t.Errorf("UTM on missing order = %+v, want zero", got)
	}
}

func TestOrderGiftshopSummary(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{Label: "Filt", Product: "gift_blanket", Quantity: 2, Amount: 300, Currency: "SEK"},
		{Label: "Vatten", Product: "gift_water", Quantity: 1, Amount: 150, Currency: "SEK"},
	}}
	want := `Filt "gift_blanket" 2 300 SEK<br />Vatten "gift_water" 1 150 SEK`
	if got := order.GiftshopSummary(); got != want {
		t.Errorf("GiftshopSummary = %q\nwant %q", got, want)
	}

	var missing *Order
	if got := missing.GiftshopSummary(); got != "" {
		t.Errorf("GiftshopSummary on missing order = %q, want empty", got)
	}
}
