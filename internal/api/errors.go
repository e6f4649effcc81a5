package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Backend error codes that get special treatment.
const (
	CodeJWTExpired = "JWT_EXPIRED"
	CodeForbidden  = "FORBIDDEN"
	CodeNotFound   = "NOT_FOUND"
)

// GenericLoadFailure is the banner text shown for any failure the UI has no
// better message for.
const GenericLoadFailure = "載入失敗，請稍後再試"

// Error is a non-2xx backend response.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%d %s)", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api: HTTP %d %s", e.Status, e.Message)
}

// decodeError builds an *Error from a failed response body. The backend
// wraps errors as {"error": {"code": ..., "message": ...}}; bodies that do
// not parse degrade to a bare status error.
func decodeError(status int, data []byte) *Error {
	var wrapped struct {
		Error Error `json:"error"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && (wrapped.Error.Code != "" || wrapped.Error.Message != "") {
		e := wrapped.Error
		e.Status = status
		return &e
	}

	// Some endpoints return the error object unwrapped.
	var flat Error
	if err := json.Unmarshal(data, &flat); err == nil && (flat.Code != "" || flat.Message != "") {
		flat.Status = status
		return &flat
	}

	return &Error{Status: status, Message: http.StatusText(status)}
}

// IsCode reports whether err is an *Error carrying the given backend code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// UserMessage maps an error to banner text. Backend-provided messages win;
// everything else gets the generic localized failure line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericLoadFailure
}
