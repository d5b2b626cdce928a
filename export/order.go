package export

import (
	"fmt"
	"strings"
)

// Order is the checkout order associated with a submission. It is read
// by the mapper for payment channel, attribution and giftshop data and
// is never mutated by the export pipeline.
type Order struct {
	ID                      string
	PaymentGateway          string
	SubscriptionPaymentType string
	Attribution             Attribution
	Items                   []OrderItem
	RemoteSent              bool
}

// Attribution carries the UTM codes captured with the order.
type Attribution struct {
	Source   string
	Medium   string
	Campaign string
	Content  string
	Term     string
}

// OrderItem is a single purchased line on a giftshop order.
type OrderItem struct {
	Label    string
	Product  string
	Quantity int
	Amount   int64
	Currency string
}

// PaymentMethod maps the order's payment gateway to the label the CRM
// expects. Recognised values on the CRM side also include Autogiro, SMS,
// PGBG, Facebook, Betternow and Receipt; those are set by other channels.
func (o *Order) PaymentMethod() string {
	if o == nil {
		return "Other"
	}
	switch o.PaymentGateway {
	case "swedbank_pay_card":
		return "Credit Card"
	case "swedbank_pay_swish":
		return "Swish"
	case "swedbank_pay_trustly":
		return "Internet Banking"
	case "unhcr_onsite_invoice":
		return "PGBG OCR"
	default:
		return "Other"
	}
}

// UTM returns the order's attribution codes, defaulting every code to ""
// when the order is missing.
func (o *Order) UTM() Attribution {
	if o == nil {
		return Attribution{}
	}
	return o.Attribution
}

// GiftshopSummary concatenates the purchased items into the summary line
// stored on the holding record.
func (o *Order) GiftshopSummary() string {
	if o == nil {
		return ""
	}
	summary := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		summary = append(summary, fmt.Sprintf("%s %q %d %d %s",
			item.Label, item.Product, item.Quantity, item.Amount, item.Currency))
	}
	return strings.Join(summary, "<br />")
}
