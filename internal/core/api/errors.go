package api

import (
	"errors"

	"github.com/solatis/couponkeeper/internal/types"
)

// ErrInvalidRequest marks malformed evaluation requests.
var ErrInvalidRequest = errors.New("invalid request")

// IsClientError reports whether err was caused by the request itself. The
// gRPC layer maps these to INVALID_ARGUMENT.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, types.ErrCartTooLarge) ||
		errors.Is(err, types.ErrInvalidItemKey) ||
		errors.Is(err, types.ErrDuplicateItemKey) ||
		errors.Is(err, types.ErrTooManyProperties)
}
