package errors

import (
	"net/http"
)

// HTTPStatusCode returns the appropriate HTTP status code for the given error.
// It maps error types to standard HTTP status codes:
//   - NotFoundError -> 404 Not Found
//   - InvalidInputError -> 400 Bad Request
//   - CancelledError -> 499 Client Closed Request
//   - TemporaryError -> 503 Service Unavailable
//   - PermanentError -> 500 Internal Server Error
//   - Unknown errors -> 500 Internal Server Error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsNotFound(err):
		return http.StatusNotFound // 404
	case IsInvalidInput(err):
		return http.StatusBadRequest // 400
	case IsCancelled(err):
		return 499 // client closed request (nginx convention)
	case IsTemporary(err):
		return http.StatusServiceUnavailable // 503
	case IsPermanent(err):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// FromHTTPStatus converts an HTTP response status from a downstream data
// endpoint into a typed error. 2xx returns nil. 4xx statuses are permanent
// (retrying the same request won't help) except 404 and 429; 5xx statuses
// are temporary.
func FromHTTPStatus(status int, msg string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return NewNotFound("endpoint", msg)
	case status == http.StatusTooManyRequests:
		return NewTemporary(msg, nil)
	case status >= 400 && status < 500:
		return NewPermanent(msg, nil)
	default:
		return NewTemporary(msg, nil)
	}
}

// WriteHTTPError writes an error response to an HTTP response writer.
// It automatically determines the status code based on the error type
// and writes a JSON error response.
func WriteHTTPError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	statusCode := HTTPStatusCode(err)
	http.Error(w, err.Error(), statusCode)
}
