package server

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ChainUnaryInterceptors runs interceptors in order, the first outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		next := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			inner := next
			next = func(ctx context.Context, req any) (any, error) {
				return interceptor(ctx, req, info, inner)
			}
		}
		return next(ctx, req)
	}
}

func recovered(logger *zap.Logger, method string, r any) error {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	logger.Error("panic in gRPC handler",
		zap.String("method", method),
		zap.Any("panic", r),
		zap.ByteString("stack", buf[:n]),
	)
	return status.Error(codes.Internal, "internal error")
}

// RecoveryInterceptor turns handler panics into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor is RecoveryInterceptor for streaming calls.
func StreamRecoveryInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

// LoggingInterceptor logs every unary call with its status and duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(logger, info.FullMethod, extractHostFromContext(ctx), start, err)
		return resp, err
	}
}

// StreamLoggingInterceptor logs every streaming call when it ends.
func StreamLoggingInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		logger.Debug("gRPC stream opened",
			zap.String("method", info.FullMethod),
			zap.String("host", extractHostFromContext(ss.Context())),
		)
		err := handler(srv, ss)
		logCall(logger, info.FullMethod, extractHostFromContext(ss.Context()), start, err)
		return err
	}
}

func logCall(logger *zap.Logger, method, host string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("host", host),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)),
	}
	switch status.Code(err) {
	case codes.OK, codes.NotFound, codes.Canceled:
		logger.Debug("gRPC call", fields...)
	default:
		logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
	}
}
