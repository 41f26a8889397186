package log

import (
	"errors"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// ErrorType maps an error to its log category.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrMissingResource):
		return ErrorTypeMissingResource
	case errors.Is(err, core.ErrFieldAccess):
		return ErrorTypeFieldAccess
	case errors.Is(err, core.ErrTransport):
		return ErrorTypeTransport
	default:
		return ErrorTypeInternal
	}
}
