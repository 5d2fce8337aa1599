package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"elitehub/web/db"

	"github.com/go-playground/validator/v10"
)

// validate reads the same `binding` tags gin uses on request bodies.
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// DecodeProfile parses raw into the profile type of appType and checks its
// required fields. The result is a pointer to one of the db *Profile types.
func DecodeProfile(appType db.ProviderType, raw json.RawMessage) (any, error) {
	var profile any
	switch appType {
	case db.ProviderVendor:
		profile = &db.VendorProfile{}
	case db.ProviderLawyer:
		profile = &db.LawyerProfile{}
	case db.ProviderLogistics:
		profile = &db.LogisticsProfile{}
	case db.ProviderService:
		profile = &db.ServiceProfile{}
	case db.ProviderExchange:
		profile = &db.ExchangeProfile{}
	default:
		return nil, fmt.Errorf("%q: %w", appType, ErrUnknownType)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty payload: %w", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPayload)
	}
	if err := validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPayload)
	}
	return profile, nil
}

// newProvider builds the table row for an approved profile.
func newProvider(base db.ProviderBase, profile any) (any, error) {
	switch p := profile.(type) {
	case *db.VendorProfile:
		return &db.Vendor{ProviderBase: base, VendorProfile: *p}, nil
	case *db.LawyerProfile:
		return &db.Lawyer{ProviderBase: base, LawyerProfile: *p}, nil
	case *db.LogisticsProfile:
		return &db.LogisticsCompany{ProviderBase: base, LogisticsProfile: *p}, nil
	case *db.ServiceProfile:
		return &db.ServiceProvider{ProviderBase: base, ServiceProfile: *p}, nil
	case *db.ExchangeProfile:
		return &db.CurrencyExchangeAgent{ProviderBase: base, ExchangeProfile: *p}, nil
	}
	return nil, fmt.Errorf("profile %T: %w", profile, ErrUnknownType)
}
