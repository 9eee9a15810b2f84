package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPErrorRecoverability(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 504} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			assert.True(t, isHTTPErrorRecoverable(status))
		})
	}
	for _, status := range []int{400, 401, 403, 404, 408, 413} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			assert.False(t, isHTTPErrorRecoverable(status))
		})
	}
}

func TestCheckForHTTPError(t *testing.T) {
	assert.NoError(t, checkForHTTPError(200, "http://fake"))
	assert.NoError(t, checkForHTTPError(202, "http://fake"))

	err := checkForHTTPError(401, "http://fake")
	if assert.IsType(t, &HTTPStatusError{}, err) {
		assert.Equal(t, 401, err.(*HTTPStatusError).Code)
		assert.Contains(t, err.Error(), "Invalid write key")
		assert.False(t, err.(*HTTPStatusError).Recoverable())
	}

	err = checkForHTTPError(503, "http://fake")
	if assert.IsType(t, &HTTPStatusError{}, err) {
		assert.Contains(t, err.Error(), "Unexpected response code: 503")
		assert.True(t, err.(*HTTPStatusError).Recoverable())
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	assert.Equal(t, "Received HTTP error 401 (invalid write key) for sending batch - giving up on this batch",
		httpErrorMessage(401, "sending batch", "will retry"))
	assert.Equal(t, "Received HTTP error 503 for sending batch - will retry",
		httpErrorMessage(503, "sending batch", "will retry"))
}
