package stripe

import (
	stderrors "errors"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/vocdoni/connect-client/errors"
	"go.vocdoni.io/dvote/log"
)

// wrapError turns a failed Stripe call into fallback carrying Stripe's own
// message when there is one. Stripe messages are written for end users and
// are shown verbatim.
func wrapError(op string, fallback errors.Error, err error) error {
	var stripeErr *stripeapi.Error
	if stderrors.As(err, &stripeErr) {
		log.Debugw("stripe request failed", "op", op, "status", stripeErr.HTTPStatusCode,
			"type", stripeErr.Type, "code", stripeErr.Code, "error", stripeErr.Msg)
		if stripeErr.Msg != "" {
			return fallback.WithMessage(stripeErr.Msg)
		}
		return fallback
	}
	log.Debugw("stripe request failed", "op", op, "error", err)
	return fallback
}
