package cache

import (
	"context"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
)

// CheckHealthWithTimeout performs a plugin health check with the specified timeout.
// This is a convenience wrapper that creates a context with timeout.
func CheckHealthWithTimeout(plugin Plugin, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := plugin.CheckHealth(ctx); err != nil {
		return errors.NewTemporary("cache health check failed", err)
	}

	return nil
}
