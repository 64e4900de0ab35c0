package cache

import (
	"context"
	"log/slog"
)

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeSet stores a value and only logs failures; cache writes never fail a request.
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value interface{}, config CacheConfig) {
	if err := helper.Set(ctx, key, value, config.TTL); err != nil {
		slog.ErrorContext(ctx, "Failed to set cache key",
			"error", err,
			"key", key)
	}
}
