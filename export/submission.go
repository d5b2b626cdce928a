package export

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// State is the lifecycle state of a form submission. Submissions move
// through the e-signature and payment steps before becoming exportable;
// once a "created" state is reached no further export is attempted.
type State string

const (
	StateQueued                     State = "queued"
	StateSigned                     State = "signed"
	StateMissingBankSigned          State = "missing_bank_signed"
	StateMissingBankInterestQueued  State = "missing_bank_interest_queued"
	StateCreatedBisnode             State = "created_bisnode"
	StateMissingBankInterestCreated State = "missing_bank_interest_created"
	StateCRMSuccess                 State = "crm_success"
	StateError                      State = "error"
)

// ErrorType classifies a submission in StateError.
type ErrorType string

// ErrorTypeCommunication marks submissions that failed on a transient
// CRM communication problem and may be retried.
const ErrorTypeCommunication ErrorType = "charity_communication_error"

// DonationKind is derived from the order type captured with the submission.
type DonationKind string

const (
	// KindRecurring is a monthly autogiro donation requiring a signed mandate.
	KindRecurring DonationKind = "recurring"
	// KindSingle covers one-time, honorial, gift and company donations.
	KindSingle DonationKind = "single"
	// KindUnknown means no mapping rule applies; the pipeline treats it
	// as "nothing to submit" rather than an error.
	KindUnknown DonationKind = "unknown"
)

// CustomerType distinguishes private persons from organisations.
type CustomerType string

const (
	CustomerPerson       CustomerType = "person"
	CustomerOrganisation CustomerType = "organisation"
)

// Submission is a captured donation form instance. Data holds the raw
// answers as a JSON object keyed by field name; it is read with gjson
// paths and never modified by the export pipeline itself.
type Submission struct {
	ID        string
	State     State
	ErrorType ErrorType
	Campaign  string
	Recruiter string
	Data      json.RawMessage
	OrderID   string
}

// Field returns the string value of a raw data field, or "" when absent.
func (s *Submission) Field(path string) string {
	return gjson.GetBytes(s.Data, path).String()
}

// HasField reports whether a raw data field is present, even if empty.
func (s *Submission) HasField(path string) bool {
	return gjson.GetBytes(s.Data, path).Exists()
}

// Kind derives the donation kind from the captured order type.
func (s *Submission) Kind() DonationKind {
	switch s.Field("order_type") {
	case "unhcr_monthly_order_type":
		return KindRecurring
	case "unhcr_honorial_", "engasgava_order", "unhcr_one_time_company_", "unhcr_gift":
		return KindSingle
	default:
		return KindUnknown
	}
}

// CustomerType derives the payer type from the captured customer type value.
// "C" marks a company; anything else defaults to a private person.
func (s *Submission) CustomerType() CustomerType {
	if s.Field("field_customer_type_value") == "C" {
		return CustomerOrganisation
	}
	return CustomerPerson
}

// IsGift reports whether the submission is a giftshop purchase.
func (s *Submission) IsGift() bool {
	return s.Field("order_type") == "unhcr_gift"
}

// NationalID returns the national id (organisation number for companies,
// personal number otherwise) with separator characters removed.
func (s *Submission) NationalID() string {
	ssn := s.Field("field_org_number")
	if ssn == "" {
		ssn = s.Field("pnum")
	}
	ssn = strings.ReplaceAll(ssn, "-", "")
	return strings.ReplaceAll(ssn, " ", "")
}

// ShippingStreet returns the street address, with the company name
// appended on a second line when one was captured.
func (s *Submission) ShippingStreet() string {
	street := s.Field("street_address")
	if company := s.Field("field_company_name"); company != "" {
		street += "\r\n" + company
	}
	return street
}

// PostalCode returns the postal code with spaces removed.
func (s *Submission) PostalCode() string {
	return strings.ReplaceAll(s.Field("postal_code"), " ", "")
}

// Amount returns the donation amount as a whole number of currency units.
func (s *Submission) Amount() int64 {
	return gjson.GetBytes(s.Data, "amount").Int()
}

// MandateSigned reports whether the direct debit mandate should be
// flagged as signed for recurring donations. Interest-only submissions
// pushed without bank details count as signed; they are completed later
// through the continuation flow.
func (s *Submission) MandateSigned() bool {
	switch s.State {
	case StateSigned, StateMissingBankSigned, StateMissingBankInterestQueued:
		return true
	default:
		return false
	}
}

// HasESignCase reports whether the submission went through the
// e-signature flow (monthly subscriptions sign their mandate remotely).
func (s *Submission) HasESignCase() bool {
	return s.Field("assently_case") != ""
}
