package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
)

// FieldDocRow documents one mapped CRM field.
type FieldDocRow struct {
	Kind       DonationKind
	Object     string
	FieldName  string
	Label      string
	SourcePath string
	Protected  bool
	NoOverride bool
}

// FieldDocumentation lists every field the mapper can emit, for
// administrators reconciling form answers against CRM records.
type FieldDocumentation struct {
	Rows []FieldDocRow
}

// GenerateFieldDocumentation builds documentation rows by mapping a
// fully populated probe submission through every donation kind and
// annotating each emitted field.
func GenerateFieldDocumentation(settings Settings) FieldDocumentation {
	mapper := Mapper{Settings: settings, Now: probeClock}
	doc := FieldDocumentation{}

	probes := []struct {
		kind DonationKind
		sub  *Submission
	}{
		{KindRecurring, probeSubmission(StateSigned, "unhcr_monthly_order_type", "")},
		{KindSingle, probeSubmission(StateSigned, "engasgava_order", "")},
		{KindSingle, probeSubmission(StateSigned, "unhcr_one_time_company_", "C")},
	}

	seen := make(map[string]bool)
	for _, probe := range probes {
		payload := mapper.Map(probe.sub, probeOrder())
		if payload == nil {
			continue
		}
		for _, record := range payload.Records {
			noOverride := make(map[string]bool, len(record.NoOverride))
			for _, f := range record.NoOverride {
				noOverride[f] = true
			}
			for _, field := range record.Fields {
				key := string(probe.kind) + "/" + record.Object + "/" + field.Name
				if seen[key] {
					continue
				}
				seen[key] = true
				doc.Rows = append(doc.Rows, FieldDocRow{
					Kind:       probe.kind,
					Object:     record.Object,
					FieldName:  field.Name,
					Label:      fieldLabel(field.Name),
					SourcePath: fieldSources[field.Name],
					Protected:  protectedFor(record.Object)[field.Name],
					NoOverride: noOverride[field.Name],
				})
			}
		}
	}

	sort.SliceStable(doc.Rows, func(i, j int) bool {
		if doc.Rows[i].Kind != doc.Rows[j].Kind {
			return doc.Rows[i].Kind < doc.Rows[j].Kind
		}
		if doc.Rows[i].Object != doc.Rows[j].Object {
			return doc.Rows[i].Object < doc.Rows[j].Object
		}
		return doc.Rows[i].FieldName < doc.Rows[j].FieldName
	})
	return doc
}

// FormatCSV formats the field documentation as CSV.
func (d FieldDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Donation Kind", "CRM Object", "CRM Field", "Label", "Form Source", "Drop When Empty", "Do Not Override"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, row := range d.Rows {
		record := []string{
			string(row.Kind), row.Object, row.FieldName, row.Label, row.SourcePath,
			mark(row.Protected), mark(row.NoOverride),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// fieldLabel derives a human label from a CRM field name, upper-casing
// the namespace prefix and camel-casing the rest.
func fieldLabel(name string) string {
	name = strings.TrimSuffix(name, "__c")
	parts := strings.SplitN(name, "__", 2)
	if len(parts) == 2 {
		return strings.ToUpper(parts[0]) + " " + strcase.ToCamel(parts[1])
	}
	return strcase.ToCamel(name)
}

// fieldSources names the form answer (or derivation) behind each field.
var fieldSources = map[string]string{
	"Personal_ID_S4U__c":              "pnum / field_org_number (separators stripped)",
	"Organisational_Number_S4U__c":    "field_org_number (separators stripped)",
	"FirstName":                       "first_name",
	"LastName":                        "last_name",
	"Name":                            "field_company_name, or first_name + last_name",
	"Email":                           "email",
	"MailingCity":                     "city",
	"MailingStreet":                   "street_address (+ company name line)",
	"MailingPostalCode":               "postal_code (spaces stripped)",
	"ShippingCity":                    "city",
	"ShippingStreet":                  "street_address (+ company name line)",
	"ShippingPostalCode":              "postal_code (spaces stripped)",
	"MobilePhone":                     "mobile_phone (mobile prefix match)",
	"Phone":                           "mobile_phone (non-mobile prefix)",
	"Phone_S4U__c":                    "mobile_phone (normalized)",
	"gcdt__Recurring_Amount__c":       "amount",
	"gcdt__Opportunity_Amount__c":     "amount",
	"gcdt__Payment_Reference__c":      "transaction_id",
	"gcdt__Campaign__c":               "field_charity_campaign (gift campaign for gifts)",
	"Bank_Account_Number_S4U__c":      "bank_number",
	"Drupal_Order_ID_S4U__c":          "order_id",
	"UTM_Source_S4U__c":               "order utm_source",
	"UTM_Medium_S4U__c":               "order utm_medium",
	"UTM_Campaign_S4U__c":             "order utm_campaign",
	"UTM_Content_S4U__c":              "order utm_content",
	"UTM_Term_S4U__c":                 "order utm_term",
	"gcdt__Payment_Method__c":         "order payment gateway",
	"Mandate_Signed_S4U__c":           "submission state",
	"gcdt__Recurring_Start_Date__c":   "(export date)",
	"gcdt__Opportunity_CloseDate__c":  "(export date)",
	"Giftshop_Summary_S4U__c":         "order items",
	"Is_Giftshop_Gift_S4U__c":         "order_type",
	"Sign_Up_Continuation_ID_S4U__c":  "(submission id)",
	"Sign_Up_Continuation_URL_S4U__c": "(continuation link)",
	"unig__Source_Campaign__c":        "submission campaign",
	"Recruiter_S4U__c":                "submission recruiter",
}

func protectedFor(object string) map[string]bool {
	var fields []string
	switch object {
	case "Contact":
		fields = contactProtectedFields
	case "Account":
		fields = accountProtectedFields
	}
	result := make(map[string]bool, len(fields))
	for _, f := range fields {
		result[f] = true
	}
	return result
}

func probeSubmission(state State, orderType, customerType string) *Submission {
	data := fmt.Sprintf(`{
		"order_type": %q,
		"field_customer_type_value": %q,
		"pnum": "19800101-1234",
		"field_org_number": "556677-8899",
		"field_company_name": "Example AB",
		"first_name": "First",
		"last_name": "Last",
		"email": "donor@example.se",
		"city": "Stockholm",
		"street_address": "Street 1",
		"postal_code": "111 22",
		"mobile_phone": "0701234567",
		"amount": "100",
		"transaction_id": "TX-1",
		"field_charity_campaign": "CAMPAIGN",
		"bank_number": "12345",
		"order_id": "1"
	}`, orderType, customerType)
	return &Submission{
		ID:        "probe",
		State:     state,
		Campaign:  "CAMPAIGN",
		Recruiter: "RECRUITER",
		Data:      []byte(data),
	}
}

func probeOrder() *Order {
	return &Order{
		ID:             "1",
		PaymentGateway: "swedbank_pay_card",
		Attribution: Attribution{
			Source: "s", Medium: "m", Campaign: "c", Content: "n", Term: "t",
		},
		Items: []OrderItem{{Label: "Item", Product: "Product", Quantity: 1, Amount: 100, Currency: "SEK"}},
	}
}

func probeClock() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}
