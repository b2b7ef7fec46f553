package grpcx

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapError переводит доменную ошибку в status; готовый status не трогает.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	switch domain.Kind(err) {
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case domain.KindInvalidRole, domain.KindInvalidInput, domain.KindInvalidNesting:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindAlreadyUsed, domain.KindExpired:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
