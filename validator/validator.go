// Package validator checks user input before any network call is made. It
// wraps go-playground/validator with the bank, name and amount rules of the
// demo forms and turns failures into human readable messages.
package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/vocdoni/connect-client/api/apicommon"
)

const (
	// MinAccountNumberLength and MaxAccountNumberLength bound bank account
	// numbers.
	MinAccountNumberLength = 4
	MaxAccountNumberLength = 17
)

var (
	// digitsRegex matches strings made only of ASCII digits.
	digitsRegex = regexp.MustCompile(`^\d+$`)

	// usRoutingRegex matches ABA routing numbers.
	usRoutingRegex = regexp.MustCompile(`^\d{9}$`)

	// sortCodeRegex matches UK sort codes once dashes are removed.
	sortCodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// ValidationError represents an individual validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a slice of ValidationError.
type ValidationErrors []ValidationError

// Error returns a string representation of the validation errors.
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return sb.String()
}

// First returns the message of the first error, the one a form shows.
func (ve ValidationErrors) First() string {
	if len(ve) == 0 {
		return ""
	}
	return ve[0].Message
}

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Register custom validation functions
	_ = v.RegisterValidation("routingnumber", validateRoutingNumber)
	_ = v.RegisterValidation("accountnumber", validateAccountNumber)
	_ = v.RegisterValidation("trimmedmin", validateTrimmedMin)
	_ = v.RegisterValidation("trimmedmax", validateTrimmedMax)

	return &Validator{
		validator: v,
	}
}

// Validate validates a struct. Failures are returned as ValidationErrors in
// field order; any other error (a nil or non struct argument) is returned
// as is.
func (v *Validator) Validate(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	root := reflect.Indirect(reflect.ValueOf(s))
	verrs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		verrs = append(verrs, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe, root),
		})
	}
	return verrs
}

// countryOf resolves the country field named by param on the parent struct.
// An empty country is the default one, US. Without param, or when the field
// does not exist, the country is unknown.
func countryOf(parent reflect.Value, param string) string {
	parent = reflect.Indirect(parent)
	if param == "" || parent.Kind() != reflect.Struct {
		return ""
	}
	f := parent.FieldByName(param)
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	country := strings.ToUpper(strings.TrimSpace(f.String()))
	if country == "" {
		return apicommon.DefaultCountry
	}
	return country
}

// validateRoutingNumber validates a routing number (US) or sort code (GB).
// The tag parameter names the sibling field holding the country, for
// example routingnumber=Country. Other countries only need a value.
func validateRoutingNumber(fl validator.FieldLevel) bool {
	routing := fl.Field().String()
	if strings.TrimSpace(routing) == "" {
		return false
	}
	switch countryOf(fl.Parent(), fl.Param()) {
	case "US":
		return usRoutingRegex.MatchString(routing)
	case "GB":
		return sortCodeRegex.MatchString(strings.ReplaceAll(routing, "-", ""))
	default:
		return true
	}
}

// validateAccountNumber validates a bank account number: digits only,
// between 4 and 17 long.
func validateAccountNumber(fl validator.FieldLevel) bool {
	number := fl.Field().String()
	if !digitsRegex.MatchString(number) {
		return false
	}
	return len(number) >= MinAccountNumberLength && len(number) <= MaxAccountNumberLength
}

func trimmedLen(fl validator.FieldLevel) int {
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
}

func intParam(fl validator.FieldLevel) int {
	var n int
	_, _ = fmt.Sscanf(fl.Param(), "%d", &n)
	return n
}

// validateTrimmedMin checks the length without surrounding spaces.
func validateTrimmedMin(fl validator.FieldLevel) bool {
	return trimmedLen(fl) >= intParam(fl)
}

// validateTrimmedMax checks the length without surrounding spaces.
func validateTrimmedMax(fl validator.FieldLevel) bool {
	return trimmedLen(fl) <= intParam(fl)
}

// label turns a JSON field name into the label used in messages:
// routing_number becomes "Routing number".
func label(field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

// getErrorMessage returns a human-readable error message for a validation error.
func getErrorMessage(err validator.FieldError, root reflect.Value) string {
	switch err.Tag() {
	case "required":
		return label(err.Field()) + " is required"
	case "email":
		return "Invalid email format"
	case "trimmedmin":
		if value, _ := err.Value().(string); strings.TrimSpace(value) == "" {
			return label(err.Field()) + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", label(err.Field()), err.Param())
	case "trimmedmax":
		return fmt.Sprintf("%s must be less than %s characters", label(err.Field()), err.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters long", err.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long", err.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", label(err.Field()), err.Param())
	case "url":
		return "Invalid URL format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label(err.Field()), err.Param())
	case "eqfield":
		return "Account numbers do not match"
	case "routingnumber":
		routing, _ := err.Value().(string)
		if strings.TrimSpace(routing) == "" {
			return "Routing number is required"
		}
		switch countryOf(root, err.Param()) {
		case "US":
			return "US routing number must be 9 digits"
		case "GB":
			return "UK sort code must be 6 digits"
		}
		return "Invalid routing number"
	case "accountnumber":
		number, _ := err.Value().(string)
		switch {
		case number == "":
			return "Account number is required"
		case !digitsRegex.MatchString(number):
			return "Account number must contain only digits"
		default:
			return fmt.Sprintf("Account number must be between %d and %d digits",
				MinAccountNumberLength, MaxAccountNumberLength)
		}
	default:
		return fmt.Sprintf("Invalid value: %s", err.Tag())
	}
}
