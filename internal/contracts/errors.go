package contracts

import "errors"

// Validation errors (caller-facing, never retried)
var (
	ErrInvalidMonth        = errors.New("invalid as_of_month")
	ErrMonthUnavailable    = errors.New("requested as_of_month is not available in the dataset")
	ErrInsufficientHistory = errors.New("not enough history to train a model for the requested as_of_month")
	ErrInvalidBins         = errors.New("n_bins out of range")
	ErrInvalidK            = errors.New("k out of range")
)

// ErrNotReady is returned while the base panel is still being built
var ErrNotReady = errors.New("base panel is not initialized")

// IsValidation reports whether err is a caller-facing validation failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrMonthUnavailable) ||
		errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrInvalidBins) ||
		errors.Is(err, ErrInvalidK)
}
