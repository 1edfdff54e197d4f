package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"marketBack/internal/models"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type sessionKey struct{}

// WithSession attaches the authenticated identity to ctx.
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the identity stored by WithSession, or the zero
// (anonymous) session.
func SessionFrom(ctx context.Context) models.Session {
	s, _ := ctx.Value(sessionKey{}).(models.Session)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON reads a size-limited JSON body into dst and validates its tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Invalid("request body is empty")
		}
		return models.Invalid("invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.Invalid("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
	return models.Invalid("%v", err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNoRecord), errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrServiceNotFound), errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrStatusConflict),
		errors.Is(err, models.ErrAlreadyReviewed), errors.Is(err, models.ErrAlreadyPaid),
		errors.Is(err, models.ErrDuplicateEmail), errors.Is(err, models.ErrServiceInactive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error, status int) string {
	switch {
	case status == http.StatusInternalServerError:
		return http.StatusText(status)
	case errors.Is(err, models.ErrInvalidSignature):
		return "Invalid signature"
	}
	msg := strings.TrimPrefix(err.Error(), "models: ")
	msg = strings.TrimPrefix(msg, "validation failed: ")
	return msg
}

// writeError maps err onto an HTTP status. Server errors are logged and their
// detail is not exposed.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Errorw("request failed", "method", r.Method, "uri", r.URL.RequestURI(), "err", err)
	}
	writeJSON(w, status, errorResponse{Error: publicMessage(err, status)})
}

func writeMessage(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}
