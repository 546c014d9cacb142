package models

import "errors"

// ErrValidation is the root of all shape/range errors raised before anything
// is written. Callers match it with errors.Is and read the wrapped message.
var ErrValidation = errors.New("validation failed")
