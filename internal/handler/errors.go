package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/dto"
	"go.uber.org/zap"
)

var registerValidatorOnce sync.Once

// useJSONFieldNames makes validation errors report json field names
func useJSONFieldNames() {
	registerValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// ErrorRenderer writes domain errors as JSON responses
type ErrorRenderer struct {
	logger      *zap.Logger
	development bool
}

// NewErrorRenderer creates an error renderer. In development mode responses
// carry the underlying error chain.
func NewErrorRenderer(logger *zap.Logger, development bool) *ErrorRenderer {
	return &ErrorRenderer{logger: logger, development: development}
}

// Render writes err and aborts the request
func (r *ErrorRenderer) Render(c *gin.Context, err error) {
	appErr := domain.AsError(err)
	status := appErr.Status()

	if !appErr.Operational() {
		r.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	message := appErr.Message
	if !appErr.Operational() && !r.development {
		message = domain.ErrInternal.Message
	}

	response := dto.ErrorResponse{
		Status:  statusText(status),
		Error:   string(appErr.Kind),
		Message: message,
	}
	if r.development && appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}

	c.AbortWithStatusJSON(status, response)
}

// RenderBindError reports a request that failed to bind or validate
func (r *ErrorRenderer) RenderBindError(c *gin.Context, err error) {
	response := dto.ErrorResponse{
		Status:  dto.StatusFail,
		Error:   string(domain.KindValidationFailed),
		Message: domain.ErrValidationFailed.Message,
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			response.ValidationErrors = append(response.ValidationErrors, dto.FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
	} else if r.development {
		response.Details = err.Error()
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, response)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func statusText(status int) string {
	if status >= http.StatusInternalServerError {
		return dto.StatusError
	}
	return dto.StatusFail
}
