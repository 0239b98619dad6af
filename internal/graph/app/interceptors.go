package app

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

// statusUnaryInterceptor maps domain errors onto gRPC statuses with
// errdetails, so remote callers see machine-readable codes instead of opaque
// internal messages. Non-domain errors pass through untouched.
func statusUnaryInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return resp, domainErr.ToGRPCStatus()
	}
	return resp, err
}
