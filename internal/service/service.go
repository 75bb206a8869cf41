package service

import (
	"context"
	"time"

	"restaurant-pos/internal/cache"
	"restaurant-pos/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Notifier pushes inventory events to connected clients. ws.Hub implements it.
type Notifier interface {
	Publish(action, actor, message string, data any)
}

// Cache stores computed report payloads. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

// Locker serialises bulk jobs across instances. A nil Locker runs them unguarded.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

var dashboardCacheKey = cache.Key("dashboard")

// Deps bundles the optional collaborators shared by the ledger services.
type Deps struct {
	Log      *logrus.Logger
	Notifier Notifier
	Cache    Cache
	Locker   Locker
}

func (d Deps) logger() *logrus.Logger {
	if d.Log == nil {
		return logger.Get()
	}
	return d.Log
}

// publish runs after commit so clients never see a rolled back change.
func (d Deps) publish(action, actor, message string, data any) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Publish(action, actor, message, data)
}

// invalidateDashboard drops the cached dashboard after a sale, a refund or a cost or price change.
// A cache failure is logged and never fails the mutation that triggered it.
func (d Deps) invalidateDashboard(ctx context.Context, moduleName, funcName string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Delete(ctx, dashboardCacheKey); err != nil {
		logger.LogError(d.logger(), moduleName, funcName, "invalidate dashboard cache", nil, err)
	}
}

// BulkResult reports one item of a bulk operation; one failure never aborts the others.
type BulkResult[T any] struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Item    *T     `json:"item,omitempty"`
	Error   string `json:"error,omitempty"`
}
