package admin

import (
	"context"
	"errors"
	"log"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"
	"gorm.io/gorm"

	apperrors "contactos/pkg/errors"
)

// ErrorBody is the JSON envelope of every admin error response.
type ErrorBody struct {
	Name    string            `json:"name"`
	ID      string            `json:"id"`
	Message string            `json:"message"`
	Fault   bool              `json:"fault"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// WriteError renders err as a goa service error with the status mapped from
// its AppError code. Anything that is not an AppError is an internal fault.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	name := string(apperrors.ErrCodeInternalError)
	message := "internal server error"
	var fields apperrors.FieldErrors

	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperrors.Wrap(apperrors.ErrCodeNotFound, "object not found", err)
	}
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
		name = string(appErr.Code)
		message = appErr.Message
		fields = appErr.Fields
	}

	fault := status >= http.StatusInternalServerError
	svcErr := goa.NewServiceError(errors.New(message), name, false, false, fault)
	if fault {
		log.Printf("[ADMIN] Error %s: %v", svcErr.ID, err)
	}

	WriteJSON(ctx, w, status, &ErrorBody{
		Name:    svcErr.Name,
		ID:      svcErr.ID,
		Message: svcErr.Message,
		Fault:   svcErr.Fault,
		Errors:  fields,
	})
}

// WriteJSON encodes v with the goa response encoder.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := enc.Encode(v); err != nil {
		log.Printf("[ADMIN] Failed to encode response: %v", err)
	}
}
