package export

import (
	"net/url"
	"time"
)

// Fields dropped rather than sent empty, to avoid clearing data already
// stored on the remote contact or account.
var (
	contactProtectedFields = []string{
		"Personal_ID_S4U__c",
		"FirstName",
		"LastName",
		"Email",
		"Phone",
		"MobilePhone",
		"MailingCity",
		"MailingStreet",
		"MailingPostalCode",
	}
	accountProtectedFields = []string{
		"Organisational_Number_S4U__c",
		"Name",
		"ShippingCity",
		"ShippingStreet",
		"ShippingPostalCode",
	}
)

// Mapper translates a submission and its optional order into the CRM
// record graph for its donation kind. Mapping is deterministic; the
// close/start dates come from the injected clock.
type Mapper struct {
	Settings Settings
	Now      func() time.Time
}

// Map builds the export payload for a submission. A nil payload means
// no mapping rule applies and there is nothing to submit.
func (m Mapper) Map(sub *Submission, order *Order) *Payload {
	switch sub.Kind() {
	case KindRecurring:
		if sub.State == StateMissingBankSigned {
			return m.mapBankContinuation(sub)
		}
		return m.mapRecurring(sub, order)
	case KindSingle:
		return m.mapSingle(sub, order)
	default:
		return nil
	}
}

// mapRecurring builds the Contact + Holding graph for a monthly
// autogiro mandate.
func (m Mapper) mapRecurring(sub *Submission, order *Order) *Payload {
	phones := m.Settings.Phones()
	mobile, landline := phones.Classify(sub.Field("mobile_phone"))
	utm := order.UTM()

	// The continuation link is only relevant while bank details are missing.
	continuation := ""
	if sub.Field("bank_number") == "" {
		continuation = m.continuationURL(sub)
	}

	contact := NewRecord("Contact").
		Ref("CONTACT").
		Match().
		NoOverride("unig__Source_Type__c", "unig__Source_Campaign__c").
		Protected(contactProtectedFields...).
		Set("Personal_ID_S4U__c", sub.NationalID()).
		Set("FirstName", sub.Field("first_name")).
		Set("LastName", sub.Field("last_name")).
		Set("Email", sub.Field("email")).
		Set("MailingCity", sub.Field("city")).
		Set("MailingStreet", sub.ShippingStreet()).
		Set("MailingPostalCode", sub.PostalCode()).
		Set("MobilePhone", mobile).
		Set("Phone", landline).
		Set("unig__Source_Type__c", "Donation").
		Set("unig__Source_Campaign__c", sub.Campaign).
		Build()

	holding := NewRecord("gcdt__Holding__c").
		Set("gcdt__Contact__c", "@CONTACT").
		Set("Phone_S4U__c", phones.Normalize(sub.Field("mobile_phone"))).
		Set("gcdt__Recurring_Start_Date__c", m.Now().Format("2006-01-02")).
		Set("gcdt__Recurring_Amount__c", sub.Amount()).
		Set("gcdt__Payment_Method__c", "Autogiro").
		Set("gcdt__Campaign__c", sub.Field("field_charity_campaign")).
		Set("Recruiter_S4U__c", sub.Recruiter).
		Set("Mandate_Signed_S4U__c", sub.MandateSigned()).
		Set("Bank_Account_Number_S4U__c", sub.Field("bank_number")).
		Set("Sign_Up_Continuation_URL_S4U__c", continuation).
		Set("Sign_Up_Continuation_ID_S4U__c", sub.ID).
		Set("CurrencyISOCode", m.Settings.CurrencyISOCode).
		Set("gcdt__Process_Type__c", "WebRegular").
		Set("Drupal_Order_ID_S4U__c", sub.Field("order_id")).
		Set("UTM_Source_S4U__c", utm.Source).
		Set("UTM_Medium_S4U__c", utm.Medium).
		Set("UTM_Campaign_S4U__c", utm.Campaign).
		Set("UTM_Content_S4U__c", utm.Content).
		Set("UTM_Term_S4U__c", utm.Term).
		Build()

	return &Payload{Records: []Record{contact, holding}}
}

// mapBankContinuation builds the single Holding update sent when a donor
// completes the mandate's bank details after signing.
func (m Mapper) mapBankContinuation(sub *Submission) *Payload {
	holding := NewRecord("gcdt__Holding__c").
		Set("Bank_Account_Number_S4U__c", sub.Field("bank_number")).
		Set("gcdt__Process_Type__c", "WebF2FContinuation").
		Set("Sign_Up_Continuation_ID_S4U__c", sub.ID).
		Set("Sign_Up_Continuation_URL_S4U__c", m.continuationURL(sub)).
		Build()
	return &Payload{Records: []Record{holding}}
}

// mapSingle builds the graph for one-time, honorial, gift and company
// donations. Companies get an Account in front of the Contact.
func (m Mapper) mapSingle(sub *Submission, order *Order) *Payload {
	var records []Record
	organisation := sub.CustomerType() == CustomerOrganisation
	phones := m.Settings.Phones()
	mobile, landline := phones.Classify(sub.Field("mobile_phone"))

	if organisation {
		name := sub.Field("field_company_name")
		if name == "" {
			name = sub.Field("first_name") + " " + sub.Field("last_name")
		}
		account := NewRecord("Account").
			Ref("ACCOUNT").
			Match().
			Protected(accountProtectedFields...).
			Set("Organisational_Number_S4U__c", sub.NationalID()).
			Set("Name", name).
			Set("ShippingCity", sub.Field("city")).
			Set("ShippingStreet", sub.ShippingStreet()).
			Set("ShippingPostalCode", sub.PostalCode()).
			Set("unig__Partner_Type__c", "Corporate").
			Set("unig__Partner_Sub_Type__c", "SME").
			Set("unig__Office_Type__c", "Headquarters").
			Set("unig__Income_Team_Manual__c", "PPH").
			Set("unig__Industry_Sector__c", "Unknown").
			Build()
		contact := NewRecord("Contact").
			Ref("CONTACT").
			Match().
			Protected(contactProtectedFields...).
			Set("npsp__Primary_Affiliation__c", "@ACCOUNT").
			Set("FirstName", sub.Field("first_name")).
			Set("LastName", sub.Field("last_name")).
			Set("Email", sub.Field("email")).
			Set("unig__Source_Type__c", "Donation").
			Build()
		records = append(records, account, contact)
	} else {
		contact := NewRecord("Contact").
			Ref("CONTACT").
			Match().
			Protected(contactProtectedFields...).
			Set("Personal_ID_S4U__c", sub.NationalID()).
			Set("FirstName", sub.Field("first_name")).
			Set("LastName", sub.Field("last_name")).
			Set("Email", sub.Field("email")).
			Set("MailingCity", sub.Field("city")).
			Set("MailingStreet", sub.ShippingStreet()).
			Set("MailingPostalCode", sub.PostalCode()).
			Set("MobilePhone", mobile).
			Set("Phone", landline).
			Set("unig__Source_Type__c", "Donation").
			Build()
		records = append(records, contact)
	}

	campaign := sub.Field("field_charity_campaign")
	summary := ""
	if sub.IsGift() {
		campaign = m.Settings.GiftCampaign
		summary = order.GiftshopSummary()
	}
	utm := order.UTM()

	holding := NewRecord("gcdt__Holding__c")
	if organisation {
		holding.Set("gcdt__Account__c", "@ACCOUNT")
	}
	holding.
		Set("gcdt__Contact__c", "@CONTACT").
		Set("Phone_S4U__c", phones.Normalize(sub.Field("mobile_phone"))).
		Set("gcdt__Payment_Method__c", order.PaymentMethod()).
		Set("gcdt__Payment_Reference__c", sub.Field("transaction_id")).
		Set("gcdt__Opportunity_Amount__c", sub.Amount()).
		Set("gcdt__Campaign__c", campaign).
		Set("Giftshop_Summary_S4U__c", summary).
		Set("Is_Giftshop_Gift_S4U__c", sub.IsGift()).
		Set("Drupal_Order_ID_S4U__c", sub.Field("order_id")).
		Set("gcdt__Opportunity_CloseDate__c", m.Now().Format("2006-01-02")).
		Set("CurrencyISOCode", m.Settings.CurrencyISOCode).
		Set("gcdt__Process_Type__c", "WebSingle").
		Set("Customer_Type_S4U__c", "Private").
		Set("UTM_Source_S4U__c", utm.Source).
		Set("UTM_Medium_S4U__c", utm.Medium).
		Set("UTM_Campaign_S4U__c", utm.Campaign).
		Set("UTM_Content_S4U__c", utm.Content).
		Set("UTM_Term_S4U__c", utm.Term)

	records = append(records, holding.Build())
	return &Payload{Records: records}
}

func (m Mapper) continuationURL(sub *Submission) string {
	if m.Settings.ContinuationBaseURL == "" {
		return ""
	}
	if s, err := url.JoinPath(m.Settings.ContinuationBaseURL, sub.ID); err == nil {
		return s
	}
	return ""
}
