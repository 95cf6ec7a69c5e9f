// Package client содержит клиент gRPC-сервиса проверки доступа.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	entitlementpb "github.com/magabrotheeeer/silver-circles/internal/grpc/gen"
)

// EntitlementClient запрашивает решения у сервиса доступа.
type EntitlementClient struct {
	conn   *grpc.ClientConn
	client entitlementpb.EntitlementServiceClient
}

// NewEntitlementClient подключается к сервису по адресу addr.
func NewEntitlementClient(addr string, opts ...grpc.DialOption) (*EntitlementClient, error) {
	const op = "client.NewEntitlementClient"
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &EntitlementClient{conn: conn, client: entitlementpb.NewEntitlementServiceClient(conn)}, nil
}

// Close закрывает соединение.
func (c *EntitlementClient) Close() error {
	return c.conn.Close()
}

// Check возвращает решение для запроса.
func (c *EntitlementClient) Check(ctx context.Context, req *entitlementpb.CheckRequest) (entitlement.Decision, error) {
	const op = "client.Check"

	resp, err := c.client.Check(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	decision, ok := entitlement.ParseDecision(resp.GetDecision())
	if !ok {
		return "", fmt.Errorf("%s: unknown decision %q", op, resp.GetDecision())
	}
	return decision, nil
}
