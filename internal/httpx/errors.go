package httpx

import (
	"net/http"

	"github.com/sundayezeilo/bitly/errx"
)

// StatusToKind maps an upstream HTTP error status to an errx.Kind.
// Only 400, 403 and 404 have dedicated kinds; every other status is a
// generic request failure.
func StatusToKind(status int) errx.Kind {
	switch status {
	case http.StatusBadRequest:
		return errx.BadRequest
	case http.StatusForbidden:
		return errx.Authentication
	case http.StatusNotFound:
		return errx.NotFound
	default:
		return errx.Request
	}
}
