package aax

import (
	"errors"
	"fmt"
	"strings"

	"aax-connector/internal/core"
)

const (
	apiCodeSuccess           = 1
	apiCodeInsufficientFunds = "2002"
	apiCodeOrderNotFound     = "2003"
)

var apiErrorCodeKinds = map[string]error{
	apiCodeInsufficientFunds: core.ErrInsufficientFunds,
	apiCodeOrderNotFound:     core.ErrOrderNotFound,
}

// APIError is a logical failure reported by the venue, either through the
// embedded body code or an HTTP 400 error object.
type APIError struct {
	Op         string
	Code       string
	Msg        string
	HTTPStatus int
}

func (e APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("aax api error")
	if e.Op != "" {
		b.WriteString(" in " + e.Op)
	}
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (http %d)", e.HTTPStatus)
	}
	b.WriteString(": " + e.Msg)
	return b.String()
}

// classifyAPIError joins the venue error with its taxonomy kind so callers can
// match with errors.Is and still read the raw code via AsAPIError.
func classifyAPIError(apiErr APIError) error {
	kind, ok := apiErrorCodeKinds[strings.TrimSpace(apiErr.Code)]
	if !ok {
		kind = core.ErrBadResponse
	}
	return errors.Join(apiErr, kind)
}

func AsAPIError(err error) (APIError, bool) {
	if err == nil {
		return APIError{}, false
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return APIError{}, false
	}
	return apiErr, true
}

func IsAPIErrorCode(err error, codes ...string) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}

func opError(op string, kind error, format string, args ...any) error {
	return fmt.Errorf("aax %s: %w: %s", op, kind, fmt.Sprintf(format, args...))
}

func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("aax %s: %w", op, err)
}
