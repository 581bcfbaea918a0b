package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	h "figures/internal/helpers"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type BodyKey struct{}

type QueryKey struct{}

var validate = validator.New(validator.WithRequiredStructEnabled())

// InitValidator resets the shared validator. Called once at start-up.
func InitValidator() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

const maxBodyBytes = 1 << 20

func Validate[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data T
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			h.RespondWithError(w, 400, []string{"BAD_REQUEST"})
			return
		}

		if err := validate.Struct(data); err != nil {
			respondValidationErrors(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), BodyKey{}, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ValidateQuery[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := h.DecodeQuery[T](r.URL.Query())
		if err != nil {
			zap.L().Debug("Invalid query string", zap.Error(err))
			h.RespondWithError(w, 400, []string{"BAD_REQUEST"})
			return
		}

		if err = validate.Struct(data); err != nil {
			respondValidationErrors(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), QueryKey{}, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondValidationErrors(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.RespondWithError(w, 400, []string{"BAD_REQUEST"})
		return
	}

	var codes []string
	for _, fieldErr := range validationErrors {
		codes = append(codes, fieldErr.Field()+"_"+fieldErr.Tag())
	}
	h.RespondWithError(w, 400, codes)
}
