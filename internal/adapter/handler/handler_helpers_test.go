package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/zoo-retail/internal/adapter/auth"
	"github.com/rl1809/zoo-retail/internal/adapter/storage"
	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/core/service"
	"github.com/rl1809/zoo-retail/internal/metrics"
)

type testEnv struct {
	store    *storage.SQLAdapter
	carts    *service.CartService
	catalog  *service.CatalogService
	checkout *service.CheckoutService
	auth     *auth.JWTProvider
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "retail.db")+"?_time_format=sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storage.NewSQLAdapter(db)
	require.NoError(t, store.Migrate(ctx))
	_, err = store.Seed(ctx, []domain.Outlet{
		{
			ID:       "gift-shop",
			Name:     "Savanna Gift Shop",
			Category: domain.OutletCategoryRetail,
			Items: []domain.Item{
				{ID: "plush-lion", Name: "Plush Lion", Price: 1500, StockCount: 10, RestockThreshold: 2},
				{ID: "zoo-map", Name: "Zoo Map", Price: 200, StockCount: 1, RestockThreshold: 5},
			},
		},
		{
			ID:       "kiosk",
			Name:     "Penguin Kiosk",
			Category: domain.OutletCategoryFood,
			Items: []domain.Item{
				{ID: "ice-cream", Name: "Ice Cream", Price: 450, StockCount: 5, RestockThreshold: 1},
			},
		},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := storage.NewRedisAdapter(client, time.Hour, time.Minute)

	catalog := service.NewCatalogService(store, cache)
	checkout := service.NewCheckoutService(store, store, service.WithCheckoutGuard(cache))

	return &testEnv{
		store:    store,
		carts:    service.NewCartService(catalog, checkout),
		catalog:  catalog,
		checkout: checkout,
		auth:     auth.NewJWTProvider("test-secret", time.Hour),
		registry: prometheus.NewRegistry(),
	}
}

func (e *testEnv) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, err := e.auth.Issue(domain.Identity{UserID: userID, Email: userID + "@zoo.com", Role: role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) httpServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHTTPHandler(e.carts, e.catalog, e.checkout, e.auth,
		WithHTTPMetrics(metrics.NewServerMetrics(e.registry, "http"), e.registry),
		WithRequestTimeout(5*time.Second),
	)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
