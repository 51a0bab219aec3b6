package apiError

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bmakarand2009/studiomedia/internal/args"
	"github.com/bmakarand2009/studiomedia/internal/logging"
)

var ErrApiBadRequest = errors.New("bad Request")
var ErrApiUnsupportedMediaType = errors.New("unsupported media type")

var ErrApiNotFound = errors.New("not found")
var ErrApiSessionNotFound = fmt.Errorf("upload session not found: %w", ErrApiNotFound)
var ErrApiAssetNotFound = fmt.Errorf("asset not found: %w", ErrApiNotFound)

var ErrApiUnauthorized = errors.New("unauthorized")

// Upload failure taxonomy. Handlers map these onto http statuses, the
// orchestrator wraps them so callers can tell apart what went wrong
// without parsing messages.
var ErrConfiguration = errors.New("configuration error")
var ErrNegotiation = errors.New("transfer negotiation failed")
var ErrTransfer = errors.New("transfer failed")
var ErrRegistration = errors.New("asset registration failed")

func HandleHttpError(w http.ResponseWriter, err error) {
	var code int
	var message string

	switch {
	case errors.Is(err, ErrApiBadRequest):
		code = http.StatusBadRequest
		message = err.Error()

	case errors.Is(err, ErrApiNotFound):
		code = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, ErrApiUnsupportedMediaType):
		code = http.StatusUnsupportedMediaType
		message = err.Error()

	case errors.Is(err, ErrApiUnauthorized):
		code = http.StatusUnauthorized
		message = err.Error()

	case errors.Is(err, ErrConfiguration):
		code = http.StatusPreconditionFailed
		message = err.Error()

	case errors.Is(err, ErrNegotiation),
		errors.Is(err, ErrTransfer),
		errors.Is(err, ErrRegistration):
		code = http.StatusBadGateway
		message = err.Error()

	default:
		code = http.StatusInternalServerError
		if args.IsProduction() {
			message = "Internal Server Error"
		} else {
			message = err.Error()
		}
	}

	logging.Logger.Errorf("HTTP Error: %d %s", code, message)
	http.Error(w, message, code)
}
