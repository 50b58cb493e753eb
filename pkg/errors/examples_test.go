package errors_test

import (
	"fmt"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Example demonstrates classifying a dropped frame.
func Example() {
	err := errors.NewMalformedEnvelopeError("scheduled-archival", `unknown action "replace"`, nil)

	switch {
	case errors.IsUnknownChannel(err):
		fmt.Println("frame for a channel this client does not handle")
	case errors.IsMalformedEnvelope(err):
		fmt.Println("frame dropped")
	}

	// Output: frame dropped
}

// Example_apiError demonstrates query API error handling.
func Example_apiError() {
	err := errors.NewAPIError("/schedule", 400, "url is not a video")

	if errors.IsValidationError(err) {
		fmt.Println("rejected:", err.Message)
	}
	fmt.Println("retry:", err.Retryable())

	// Output:
	// rejected: url is not a video
	// retry: false
}
