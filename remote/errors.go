package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	apperrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-wizard"
)

const (
	ErrCodeUnavailable = "WIZARD_REMOTE_UNAVAILABLE"
	ErrCodeServer      = "WIZARD_REMOTE_ERROR"
)

var (
	ErrUnavailable = apperrors.New("task server unavailable", apperrors.CategoryExternal).
			WithTextCode(ErrCodeUnavailable)
	ErrServer = apperrors.New("task server error", apperrors.CategoryExternal).
			WithTextCode(ErrCodeServer)
)

// transientStatus lists responses worth retrying for idempotent calls.
var transientStatus = []int{
	http.StatusRequestTimeout,
	http.StatusTooEarly,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// errorBody is the error envelope the server sends with non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func statusError(op string, status int, body []byte) error {
	message := http.StatusText(status)
	var env errorBody
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		switch {
		case strings.TrimSpace(env.Message) != "":
			message = env.Message
		case strings.TrimSpace(env.Error) != "":
			message = env.Error
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		message = text
	}

	base := ErrServer
	switch status {
	case http.StatusNotFound:
		base = wizard.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = wizard.ErrValidationRejected
	}

	meta := map[string]any{"operation": op, "status": status}
	if env.Code != "" {
		meta["server_code"] = env.Code
	}
	return wizard.NewError(base, message, nil, meta).WithCode(status)
}

func unavailable(op string, err error) error {
	return wizard.NewError(ErrUnavailable, fmt.Sprintf("%s: task server unavailable", op), err,
		map[string]any{"operation": op})
}

// IsTransient reports whether a failed idempotent call may succeed if retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if wizard.HasCode(err, ErrCodeUnavailable) {
		return true
	}
	if status := wizard.StatusCode(err); status != 0 {
		return slices.Contains(transientStatus, status)
	}
	return false
}
