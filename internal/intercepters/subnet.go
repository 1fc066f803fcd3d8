package intercepters

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const RealIPKey contextKey = "real-ip"

// SubnetIPInterceptor copies the x-real-ip metadata value into the context.
func SubnetIPInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if ips := md.Get("x-real-ip"); len(ips) > 0 {
			ctx = context.WithValue(ctx, RealIPKey, ips[0])
		}
	}
	return handler(ctx, req)
}

// WithTrustedSubnet rejects calls whose real IP is outside subnet.
// It must run after SubnetIPInterceptor.
func WithTrustedSubnet(subnet string) grpc.UnaryServerInterceptor {
	_, trusted, err := net.ParseCIDR(strings.TrimSpace(subnet))
	if err != nil {
		trusted = nil
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		raw, _ := ctx.Value(RealIPKey).(string)
		if raw == "" {
			return nil, status.Error(codes.PermissionDenied, "X-Real-IP header missing")
		}

		ip := net.ParseIP(strings.TrimSpace(raw))
		if trusted == nil || ip == nil || !trusted.Contains(ip) {
			return nil, status.Error(codes.PermissionDenied, "untrusted subnet")
		}

		return handler(ctx, req)
	}
}
