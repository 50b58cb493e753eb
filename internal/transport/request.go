package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/immortalis/archivesync/pkg/errors"
)

// maxErrorBody caps how much of an error response ends up in an APIError.
const maxErrorBody = 512

// DecodeResponse decodes a JSON response into target and closes the body.
// Any non-2xx status becomes an *errors.APIError. A nil target discards
// the body.
func DecodeResponse(resp *http.Response, endpoint string, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > maxErrorBody {
			message = message[:maxErrorBody] + "..."
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return errors.NewAPIError(endpoint, resp.StatusCode, message)
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
