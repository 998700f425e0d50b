package apicommon

import "strings"

// Country is a country supported by the bank account form.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// SupportedCountries lists the bank account countries, US first.
var SupportedCountries = []Country{
	{Code: "US", Name: "United States", Currency: "usd"},
	{Code: "GB", Name: "United Kingdom", Currency: "gbp"},
	{Code: "CA", Name: "Canada", Currency: "cad"},
	{Code: "AU", Name: "Australia", Currency: "aud"},
	{Code: "DE", Name: "Germany", Currency: "eur"},
	{Code: "FR", Name: "France", Currency: "eur"},
	{Code: "NL", Name: "Netherlands", Currency: "eur"},
}

// CountryConfig returns the supported country with the given code, falling
// back to the United States for unknown codes.
func CountryConfig(code string) Country {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCountries {
		if c.Code == code {
			return c
		}
	}
	return SupportedCountries[0]
}

// CountryCurrency returns the payout currency of a country.
func CountryCurrency(code string) string {
	return CountryConfig(code).Currency
}
