package automation

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ProbeHealth dials the automation service's gRPC health port and verifies it
// reports SERVING before a session is opened. Optional: callers skip the
// probe when no address is configured.
func ProbeHealth(ctx context.Context, addr string) error {
	target := addr
	var opts []grpc.DialOption

	// Check scheme
	if strings.HasPrefix(addr, "https://") || strings.HasSuffix(addr, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(
		checkCtx,
		&grpc_health_v1.HealthCheckRequest{},
	)
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", target, err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("automation service %s not serving: %s", target, resp.Status)
	}
	return nil
}
