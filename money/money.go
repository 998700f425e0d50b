// Package money converts between the dollar amounts users type and the
// integer cents the API expects, without going through floating point.
package money

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
)

const (
	// MinAmountCents is the smallest charge Stripe accepts, $0.50.
	MinAmountCents = 50
	// MaxAmountCents is the largest amount the forms accept, $999,999.99.
	MaxAmountCents = 99999999
)

var (
	// amountRegex matches a plain decimal number once the currency sign and
	// thousands separators are removed.
	amountRegex = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)
	// groupedRegex matches an amount written with thousands separators.
	groupedRegex = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d*)?$`)

	minAmount = big.NewRat(MinAmountCents, 100)
	maxAmount = big.NewRat(MaxAmountCents, 100)
	hundred   = big.NewRat(100, 1)
)

func invalid(msg string) error {
	return errors.ErrInvalidAmount.WithMessage(msg)
}

// ParseDollars converts a dollar amount such as "10.00", "$1,000.5" or "10"
// into cents. The amount must be between $0.50 and $999,999.99 with at most
// two decimals. Errors carry the message to show next to the amount field.
func ParseDollars(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid("Amount is required")
	}
	unsigned := strings.TrimPrefix(s, "$")
	if strings.Contains(unsigned, ",") && !groupedRegex.MatchString(unsigned) {
		return 0, invalid("Invalid amount")
	}
	cleaned := strings.ReplaceAll(unsigned, ",", "")
	if !amountRegex.MatchString(cleaned) {
		return 0, invalid("Invalid amount")
	}
	sign, digits := "", cleaned
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if strings.HasPrefix(digits, ".") {
		digits = "0" + digits
	}
	amount, ok := new(big.Rat).SetString(sign + strings.TrimSuffix(digits, "."))
	if !ok {
		return 0, invalid("Invalid amount")
	}
	if amount.Cmp(minAmount) < 0 {
		return 0, invalid("Minimum amount is " + FormatCents(MinAmountCents, apicommon.DefaultCurrency))
	}
	if amount.Cmp(maxAmount) > 0 {
		return 0, invalid("Maximum amount is " + FormatCents(MaxAmountCents, apicommon.DefaultCurrency))
	}
	if _, frac, found := strings.Cut(cleaned, "."); found && len(frac) > 2 {
		return 0, invalid("Amount cannot have more than 2 decimal places")
	}
	cents := new(big.Rat).Mul(amount, hundred)
	return cents.Num().Int64(), nil
}

// currencySymbols maps the supported currencies to their display symbol.
var currencySymbols = map[string]string{
	"usd": "$",
	"cad": "$",
	"aud": "$",
	"gbp": "£",
	"eur": "€",
}

// FormatCents renders cents as a display amount with thousands separators,
// for example FormatCents(100000, "usd") is "$1,000.00". Unknown currencies
// are prefixed with their upper case code.
func FormatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	symbol, ok := currencySymbols[strings.ToLower(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, groupThousands(cents/100), cents%100)
}

func groupThousands(n int64) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// PlatformFee returns the part of a destination charge kept by the
// platform. The backend computes the real fee; this is for display.
func PlatformFee(cents int64) int64 {
	return cents * apicommon.PlatformFeePercent / 100
}
