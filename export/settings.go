package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/biter777/countries"
	"go.uber.org/config"
)

// Settings holds the pipeline configuration loaded from YAML, with env
// var expansion for secrets.
type Settings struct {
	API      APISettings
	Database DatabaseSettings
	Queue    QueueSettings

	// Country is the ISO country the forms collect donations for, e.g.
	// "SE". Currency and calling code are derived from it when unset.
	Country            string
	CurrencyISOCode    string
	CountryCallingCode string
	MobilePrefixes     []string

	// GiftCampaign is the CRM campaign id giftshop donations are booked
	// against instead of the campaign captured on the form.
	GiftCampaign string

	// ContinuationBaseURL is where donors complete a mandate that was
	// signed without bank details.
	ContinuationBaseURL string

	// AutogiroPush controls whether interest-only submissions
	// (missing_bank_interest_queued) are exported without bank details.
	AutogiroPush bool
}

type APISettings struct {
	Endpoint string
	Key      string
}

type DatabaseSettings struct {
	DSN string
}

type QueueSettings struct {
	MaxAttempts  int
	PollInterval string
	Workers      int
}

// DefaultSettings returns the settings every deployment starts from.
func DefaultSettings() Settings {
	return Settings{
		Country:        "SE",
		MobilePrefixes: []string{"070", "072", "073", "076", "079"},
		AutogiroPush:   true,
		Queue: QueueSettings{
			MaxAttempts:  10,
			PollInterval: "5s",
			Workers:      2,
		},
	}
}

// LoadSettings reads YAML settings from the given sources, later sources
// overriding earlier ones, expanding ${ENV_VAR} references.
func LoadSettings(lookup func(string) (string, bool), sources ...io.Reader) (Settings, error) {
	result := DefaultSettings()
	options := make([]config.YAMLOption, 0, len(sources)+1)
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	options = append(options, config.Expand(lookup))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml settings %w", err)
	}
	if err = yaml.Get(config.Root).Populate(&result); err != nil {
		return result, fmt.Errorf("failed to populate settings %w", err)
	}
	if err = result.expand(); err != nil {
		return result, err
	}
	return result, nil
}

// expand validates the configured country and derives the currency and
// calling code from it when they were not set explicitly.
func (s *Settings) expand() error {
	country := countries.ByName(s.Country)
	if country == countries.Unknown {
		return fmt.Errorf("unknown country %q in settings", s.Country)
	}
	if s.CurrencyISOCode == "" {
		s.CurrencyISOCode = country.Currency().Alpha()
	}
	if s.CountryCallingCode == "" {
		codes := country.CallCodes()
		if len(codes) == 0 {
			return fmt.Errorf("no calling code known for country %q", s.Country)
		}
		s.CountryCallingCode = strconv.FormatInt(int64(codes[0]), 10)
	}
	return nil
}

// Phones returns the phone classifier configured by these settings.
func (s Settings) Phones() PhoneClassifier {
	return PhoneClassifier{
		CountryCode:    s.CountryCallingCode,
		MobilePrefixes: s.MobilePrefixes,
	}
}
