package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// WriteError aborts the request with the status and message carried by err.
// Errors without an API classification become a generic 500; their detail
// is logged only.
func WriteError(c *gin.Context, logger *logger.Logger, err error) {
	apiErr := apierrors.From(err)
	if apiErr.HTTPStatus == 0 {
		apiErr = apierrors.NewErrInternalServerError(err)
	}

	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("HTTP handler: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err.Error())
	}

	c.AbortWithStatusJSON(apiErr.HTTPStatus, ErrorResponse{
		StatusCode: apiErr.HTTPStatus,
		Error:      apiErr.Code,
		Message:    apiErr.Message,
	})
}

func writeBadRequest(c *gin.Context, logger *logger.Logger, err error) {
	WriteError(c, logger, apierrors.NewErrInvalidInput(err))
}

// writeBindError answers 400 for a body that failed to decode or to satisfy
// its binding tags. The message names the first offending field.
func writeBindError(c *gin.Context, logger *logger.Logger, err error) {
	writeBadRequest(c, logger, bindErrorMessage(err))
}

func bindErrorMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("request body must be a JSON object")
	}

	fe := verrs[0]
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid address", field)
	case "uuid":
		return fmt.Errorf("%s must be a UUID", field)
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// fieldName turns a Go field name into its JSON spelling: NewPassword
// becomes newPassword and ID becomes id.
func fieldName(s string) string {
	if strings.ToUpper(s) == s {
		return strings.ToLower(s)
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
