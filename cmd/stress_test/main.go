package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/zoo-retail/internal/adapter/storage"
	"github.com/rl1809/zoo-retail/internal/config"
	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/core/service"
)

const (
	initialStock = 20
	cashiers     = 50
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect %s: %v", cfg.DBDriver, err)
	}
	store := storage.NewSQLAdapter(db)
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()
	cache := storage.NewRedisAdapter(rdb, time.Hour, cfg.SnapshotTTL)

	// A fresh item per run so earlier runs never skew the result
	itemID := fmt.Sprintf("stress-plush-%d", time.Now().UnixNano())
	_, err = store.Seed(ctx, []domain.Outlet{{
		ID:       "stress-gift-shop",
		Name:     "Stress Test Gift Shop",
		Category: domain.OutletCategoryRetail,
		Items: []domain.Item{
			{ID: itemID, Name: "Stress Plush", Price: 1000, StockCount: initialStock},
		},
	}})
	if err != nil {
		log.Fatalf("failed to seed stress item: %v", err)
	}

	catalogService := service.NewCatalogService(store, cache)
	checkoutService := service.NewCheckoutService(store, store, service.WithCheckoutGuard(cache))
	cartService := service.NewCartService(catalogService, checkoutService)
	if _, err := catalogService.Refresh(ctx); err != nil {
		log.Fatalf("failed to load snapshot: %v", err)
	}

	// Every cashier builds a one-unit cart before anyone checks out
	type session struct {
		who    domain.Identity
		cartID string
	}
	sessions := make([]session, 0, cashiers)
	for i := 0; i < cashiers; i++ {
		who := domain.Identity{UserID: fmt.Sprintf("cashier-%d", i), Role: domain.RoleEmployee}
		cart := cartService.Open(who)
		if _, err := cartService.AddItem(ctx, who, cart.ID, itemID, 1); err != nil {
			log.Fatalf("cashier %d failed to add item: %v", i, err)
		}
		sessions = append(sessions, session{who: who, cartID: cart.ID})
	}

	var successCount atomic.Int32
	var partialCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for _, s := range sessions {
		wg.Add(1)
		go func(s session) {
			defer wg.Done()

			_, err := cartService.Checkout(ctx, s.who, s.cartID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrPartialCommit) && errors.Is(err, service.ErrInsufficientStock):
				partialCount.Add(1)
			default:
				log.Printf("%s: unexpected checkout error: %v", s.who.UserID, err)
				otherCount.Add(1)
			}
		}(s)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	partial := partialCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Cashiers:         %d\n", cashiers)
	fmt.Printf("Completed:        %d\n", success)
	fmt.Printf("Partial commits:  %d\n", partial)
	fmt.Printf("Other failures:   %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && partial == cashiers-initialStock {
		fmt.Printf("PASS: exactly %d checkouts completed, %d reported partial commit\n", initialStock, cashiers-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d completed/%d partial, got %d/%d\n",
			initialStock, cashiers-initialStock, success, partial)
	}

	item, err := store.GetItem(ctx, itemID)
	if err != nil || item == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", item.StockCount)

	if item.StockCount == 0 {
		fmt.Println("PASS: stock depleted to 0, never negative")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", item.StockCount)
	}
}
