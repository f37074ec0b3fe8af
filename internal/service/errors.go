package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
)

// toConnectError maps a domain error to a Connect error. Clients only see the
// stable message for the error's code; the cause is logged here.
func toConnectError(op string, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	code := connect.CodeInternal
	switch appErr.Kind {
	case apperr.KindInvalidArgument:
		code = connect.CodeInvalidArgument
	case apperr.KindNotFound:
		code = connect.CodeNotFound
	case apperr.KindAlreadyExists:
		code = connect.CodeAlreadyExists
	case apperr.KindStorageFailure:
		code = connect.CodeUnavailable
	case apperr.KindUnauthenticated:
		code = connect.CodeUnauthenticated
	}

	if code == connect.CodeUnavailable || code == connect.CodeInternal {
		slog.Error(op+" failed", "code", appErr.Code, "error", err)
	} else {
		slog.Warn(op+" rejected", "code", appErr.Code, "error", appErr.Message())
	}

	connectErr := connect.NewError(code, errors.New(appErr.Message()))
	connectErr.Meta().Set("X-Error-Code", string(appErr.Code))
	return connectErr
}
