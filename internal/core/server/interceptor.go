package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/couponkeeper/internal/logging"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "x-request-id"

// LoggingInterceptor attaches a request-scoped logger to the context and
// logs each call's outcome and duration.
func LoggingInterceptor(base zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx, logger, requestID := logging.WithRequest(ctx, base)
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			logger.Debug().Err(err).Msg("request id header not set")
		}

		resp, err := handler(ctx, req)

		code := status.Code(err)
		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("rpc finished")
		return resp, err
	}
}
