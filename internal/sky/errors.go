package sky

import (
	"context"
	"errors"
)

var (
	// ErrUnknownCategory is returned for a category outside the closed set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownObject is returned when a name is not in the relevant table or catalog.
	ErrUnknownObject = errors.New("unknown object")
	// ErrReferenceDataUnavailable is returned when ephemeris, catalog or
	// satellite data cannot be loaded or fetched.
	ErrReferenceDataUnavailable = errors.New("reference data unavailable")
	// ErrConversionInputInvalid is returned for malformed converter input.
	ErrConversionInputInvalid = errors.New("conversion input invalid")
	// ErrMalformedRequest is returned when interpreted text does not yield a name and category.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrTransmitFailed is returned when the pointing sink cannot be reached
	// or does not acknowledge a command.
	ErrTransmitFailed = errors.New("transmit failed")
)

// Error kinds reported in logs, metrics and API responses.
const (
	KindNone                     = "ok"
	KindUnknownCategory          = "unknown_category"
	KindUnknownObject            = "unknown_object"
	KindReferenceDataUnavailable = "reference_data_unavailable"
	KindConversionInputInvalid   = "conversion_input_invalid"
	KindMalformedRequest         = "malformed_request"
	KindTransmitFailed           = "transmit_failed"
	KindTimeout                  = "timeout"
	KindCanceled                 = "canceled"
	KindInternal                 = "internal"
)

// KindOf classifies err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownCategory):
		return KindUnknownCategory
	case errors.Is(err, ErrUnknownObject):
		return KindUnknownObject
	case errors.Is(err, ErrReferenceDataUnavailable):
		return KindReferenceDataUnavailable
	case errors.Is(err, ErrConversionInputInvalid):
		return KindConversionInputInvalid
	case errors.Is(err, ErrMalformedRequest):
		return KindMalformedRequest
	case errors.Is(err, ErrTransmitFailed):
		return KindTransmitFailed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindInternal
}
