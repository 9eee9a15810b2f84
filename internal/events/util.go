package events

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPStatusError is the error reported to callbacks when the ingestion API answers a batch with a
// non-2xx status.
type HTTPStatusError struct {
	Message string
	Code    int
}

func (e *HTTPStatusError) Error() string {
	return e.Message
}

// Recoverable returns true if retrying the same request might succeed.
func (e *HTTPStatusError) Recoverable() bool {
	return isHTTPErrorRecoverable(e.Code)
}

func checkForHTTPError(statusCode int, url string) error {
	if statusCode == http.StatusUnauthorized {
		return &HTTPStatusError{
			Message: fmt.Sprintf("Invalid write key when accessing URL: %s. Verify that your write key is correct.", url),
			Code:    statusCode}
	}

	if statusCode == http.StatusNotFound {
		return &HTTPStatusError{
			Message: fmt.Sprintf("Resource not found when accessing URL: %s. Verify that the host and path are correct.", url),
			Code:    statusCode}
	}

	if statusCode/100 != 2 {
		return &HTTPStatusError{
			Message: fmt.Sprintf("Unexpected response code: %d when accessing URL: %s", statusCode, url),
			Code:    statusCode}
	}
	return nil
}

func httpErrorMessage(statusCode int, context string, recoverableMessage string) string {
	statusDesc := ""
	if statusCode == 401 {
		statusDesc = " (invalid write key)"
	}
	resultMessage := recoverableMessage
	if !isHTTPErrorRecoverable(statusCode) {
		resultMessage = "giving up on this batch"
	}
	return fmt.Sprintf("Received HTTP error %d%s for %s - %s",
		statusCode, statusDesc, context, resultMessage)
}

// Tests whether an HTTP error status represents a condition that might resolve on its own if we retry.
// Only rate limiting and server-side failures qualify; every other 4xx means the request itself is wrong.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode <= 599
}

func now() time.Time {
	return time.Now().UTC()
}
