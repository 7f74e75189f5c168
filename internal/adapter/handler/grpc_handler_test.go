package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

func dialCheckoutService(t *testing.T, env *testEnv) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	NewGRPCHandler(env.carts, env.catalog, env.auth).Register(srv)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(JSONCodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	return conn.Invoke(ctx, "/"+CheckoutServiceName+"/"+method, req, resp)
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestGRPC_CheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dialCheckoutService(t, env)
	ctx := withToken(env.token(t, "cashier-1", domain.RoleEmployee))

	var opened CartResponse
	require.NoError(t, invoke(ctx, conn, "OpenCart", &OpenCartRequest{}, &opened))
	require.True(t, opened.Success)
	cartID := opened.Cart.ID

	var added CartResponse
	require.NoError(t, invoke(ctx, conn, "AddItem", &ItemRequest{CartID: cartID, ItemID: "ice-cream", Quantity: 3}, &added))
	require.True(t, added.Success, added.Message)

	var adjusted CartResponse
	require.NoError(t, invoke(ctx, conn, "AdjustQuantity", &ItemRequest{CartID: cartID, ItemID: "ice-cream", Delta: -1}, &adjusted))
	require.True(t, adjusted.Success)
	assert.Equal(t, int64(900), adjusted.Cart.Total)

	var got CartResponse
	require.NoError(t, invoke(ctx, conn, "GetCart", &CartRequest{CartID: cartID}, &got))
	require.Len(t, got.Cart.Lines, 1)
	assert.Equal(t, 2, got.Cart.Lines[0].Quantity)

	var done CheckoutRPCResponse
	require.NoError(t, invoke(ctx, conn, "Checkout", &CartRequest{CartID: cartID}, &done))
	require.True(t, done.Success, done.Message)
	require.NotNil(t, done.Confirmation)
	assert.Equal(t, int64(900), done.Confirmation.Total)

	ice, err := env.store.GetItem(context.Background(), "ice-cream")
	require.NoError(t, err)
	assert.Equal(t, 3, ice.StockCount)
}

func TestGRPC_PartialCommitInBody(t *testing.T) {
	env := newTestEnv(t)
	conn := dialCheckoutService(t, env)
	ctx := withToken(env.token(t, "cashier-1", domain.RoleEmployee))

	var opened CartResponse
	require.NoError(t, invoke(ctx, conn, "OpenCart", &OpenCartRequest{}, &opened))
	cartID := opened.Cart.ID
	require.NoError(t, invoke(ctx, conn, "AddItem", &ItemRequest{CartID: cartID, ItemID: "zoo-map", Quantity: 1}, &CartResponse{}))

	_, err := env.store.DecrementStock(context.Background(), "zoo-map", 1)
	require.NoError(t, err)

	var resp CheckoutRPCResponse
	require.NoError(t, invoke(ctx, conn, "Checkout", &CartRequest{CartID: cartID}, &resp))
	assert.False(t, resp.Success)
	assert.False(t, resp.Retryable)
	assert.NotEmpty(t, resp.TransactionID)
	require.Len(t, resp.FailedLines, 1)
	assert.Equal(t, "zoo-map", resp.FailedLines[0].ItemID)
}

func TestGRPC_BusinessErrorsInBody(t *testing.T) {
	env := newTestEnv(t)
	conn := dialCheckoutService(t, env)
	ctx := withToken(env.token(t, "cashier-1", domain.RoleEmployee))

	var resp CartResponse
	require.NoError(t, invoke(ctx, conn, "GetCart", &CartRequest{CartID: "missing"}, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "cart not found", resp.Message)

	var restock RestockRPCResponse
	require.NoError(t, invoke(ctx, conn, "Restock", &RestockRPCRequest{ItemID: "zoo-map", Quantity: 1}, &restock))
	assert.False(t, restock.Success)
	assert.Equal(t, "insufficient permissions", restock.Message)

	var abandoned CartResponse
	require.NoError(t, invoke(ctx, conn, "AbandonCart", &CartRequest{CartID: "missing"}, &abandoned))
	assert.False(t, abandoned.Success)
}

func TestGRPC_RemoveAndRestock(t *testing.T) {
	env := newTestEnv(t)
	conn := dialCheckoutService(t, env)
	ctx := withToken(env.token(t, "mgr-1", domain.RoleManager))

	var opened CartResponse
	require.NoError(t, invoke(ctx, conn, "OpenCart", &OpenCartRequest{}, &opened))
	cartID := opened.Cart.ID
	require.NoError(t, invoke(ctx, conn, "AddItem", &ItemRequest{CartID: cartID, ItemID: "plush-lion", Quantity: 1}, &CartResponse{}))

	var removed CartResponse
	require.NoError(t, invoke(ctx, conn, "RemoveItem", &ItemRequest{CartID: cartID, ItemID: "plush-lion"}, &removed))
	assert.True(t, removed.Success)
	assert.Empty(t, removed.Cart.Lines)

	var restock RestockRPCResponse
	require.NoError(t, invoke(ctx, conn, "Restock", &RestockRPCRequest{ItemID: "plush-lion", Quantity: 5}, &restock))
	assert.True(t, restock.Success)
	assert.Equal(t, 15, restock.StockCount)
}

func TestGRPC_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	conn := dialCheckoutService(t, env)

	err := invoke(context.Background(), conn, "OpenCart", &OpenCartRequest{}, &CartResponse{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = invoke(withToken("garbage"), conn, "OpenCart", &OpenCartRequest{}, &CartResponse{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
