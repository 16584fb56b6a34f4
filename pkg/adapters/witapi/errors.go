package witapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ptab/wit/pkg/domain"
)

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-success HTTP response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("wit: status %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("wit: status %d: %s", e.StatusCode, msg)
}

func (e *APIError) Is(target error) bool {
	return target == domain.ErrTransport
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w: %v", domain.ErrTransport, ErrMalformedResponse, err)
}
