// Package apicommon provides the types, constants and helper functions shared
// by the client and the test backend for the Connect demo API.
package apicommon

const (
	// DefaultCountry is sent when an account is created without country.
	DefaultCountry = "US"
	// DefaultCurrency is used by transactions and bank accounts without an
	// explicit currency.
	DefaultCurrency = "usd"
	// DefaultAccountHolderType is the holder type of tokenized bank accounts.
	DefaultAccountHolderType = "individual"
	// PlatformFeePercent is the fee the backend keeps on destination charges.
	// It is computed server side; the client only shows it.
	PlatformFeePercent = 10
)

// Status values returned by the delete endpoints.
const (
	StatusDeleted  = "deleted"
	StatusDetached = "detached"
)
