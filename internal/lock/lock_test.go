package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/pkg/database"
)

// Runs only when a redis server is reachable through TEST_REDIS_URL.
func TestObtainIsExclusive(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := database.ConnectRedis(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	locker := NewRedisLocker(client)
	key := "lock:test:" + t.Name()

	release, err := locker.Obtain(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("first obtain: %v", err)
	}
	if _, err := locker.Obtain(ctx, key, 5*time.Second); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second obtain: got %v, want conflict", err)
	}

	release()
	again, err := locker.Obtain(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("obtain after release: %v", err)
	}
	again()
}
