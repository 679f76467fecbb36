package reflexion

import "github.com/m-mizutani/goerr/v2"

// TagValidation marks errors caused by malformed or out-of-range tool
// arguments. These are business-level failures: they are embedded in the
// result record and must not surface as transport errors.
var TagValidation = goerr.NewTag("validation")

func validationErr(msg string, options ...goerr.Option) error {
	options = append(options, goerr.T(TagValidation))
	return goerr.New(msg, options...)
}
