package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/testutil"
)

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "invalid credentials",
			err:         apierrors.NewErrInvalidCredentials(),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    apierrors.CodeInvalidCredentials,
			wantMessage: "Invalid credentials",
		},
		{
			name:        "wrapped api error",
			err:         fmt.Errorf("set password: %w", apierrors.NewErrTokenExpired()),
			wantStatus:  http.StatusBadRequest,
			wantCode:    apierrors.CodeTokenExpired,
			wantMessage: "Token has expired.",
		},
		{
			name:        "reset token not found",
			err:         apierrors.NewErrInvalidOrExpiredToken(),
			wantStatus:  http.StatusNotFound,
			wantCode:    apierrors.CodeInvalidOrExpiredToken,
			wantMessage: "Invalid or expired token.",
		},
		{
			name:        "api error without status",
			err:         &apierrors.APIError{Code: "custom", Message: "custom"},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    apierrors.CodeInternal,
			wantMessage: "internal server error",
		},
		{
			name:        "forbidden",
			err:         apierrors.NewErrForbidden(),
			wantStatus:  http.StatusForbidden,
			wantCode:    apierrors.CodeForbidden,
			wantMessage: "insufficient permissions",
		},
		{
			name:        "unknown error is hidden",
			err:         errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    apierrors.CodeInternal,
			wantMessage: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := gin.New()
			engine.GET("/", func(c *gin.Context) {
				WriteError(c, testutil.MakeNoopLogger(), tt.err)
			})

			rec := doJSON(t, engine, http.MethodGet, "/", "", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		})
	}
}

func TestFieldName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "token", fieldName("Token"))
	assert.Equal(t, "newPassword", fieldName("NewPassword"))
	assert.Equal(t, "id", fieldName("ID"))
	assert.Equal(t, "dob", fieldName("DOB"))
}
