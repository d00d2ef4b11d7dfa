package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/mocks"
	"github.com/dtroode/valhalla-auth/internal/testutil"
)

type userKey struct{}

func TestAuthenticate_AuthFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mdAuthHeader  string
		authorizerErr error
		wantGRPCCode  codes.Code
		wantMsg       string
	}{
		{
			name:          "missing authorization header",
			authorizerErr: apierrors.NewErrMissingAuthorizationToken(),
			wantGRPCCode:  codes.Unauthenticated,
			wantMsg:       "authorization token is missing",
		},
		{
			name:          "invalid token",
			mdAuthHeader:  "Bearer invalid",
			authorizerErr: apierrors.NewErrInvalidAuthorizationToken(),
			wantGRPCCode:  codes.Unauthenticated,
			wantMsg:       "authorization token is invalid",
		},
		{
			name:          "store failure",
			mdAuthHeader:  "Bearer token",
			authorizerErr: apierrors.NewErrInternalServerError(errors.New("db down")),
			wantGRPCCode:  codes.Internal,
			wantMsg:       "internal server error",
		},
		{
			name:         "valid token",
			mdAuthHeader: "Bearer token",
			wantGRPCCode: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			authorizer := mocks.NewAuthorizer(t)
			authorizer.On("Authorize", mock.Anything, tt.mdAuthHeader).Return(
				func(ctx context.Context, _ string) context.Context {
					if tt.authorizerErr != nil {
						return nil
					}
					return context.WithValue(ctx, userKey{}, "alice")
				},
				tt.authorizerErr,
			)

			ctx := context.Background()
			if tt.mdAuthHeader != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tt.mdAuthHeader))
			}

			m := NewAuthenticate(authorizer, testutil.MakeNoopLogger())
			gotCtx, err := m.AuthFunc(ctx)

			if tt.wantGRPCCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "alice", gotCtx.Value(userKey{}))
				return
			}

			assert.Nil(t, gotCtx)
			st, ok := status.FromError(err)
			assert.True(t, ok)
			assert.Equal(t, tt.wantGRPCCode, st.Code())
			assert.Equal(t, tt.wantMsg, st.Message())
		})
	}
}
