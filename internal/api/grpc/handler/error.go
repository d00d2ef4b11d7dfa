package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// ToStatus converts err into a gRPC status error that is safe to return to
// a client.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) && apiErr.GRPCCode != codes.OK {
		return status.Error(apiErr.GRPCCode, apiErr.Message)
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, model.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, apierrors.NewErrInvalidAuthorizationToken().Message)
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
