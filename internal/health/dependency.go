package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// pingChecker adapts any ping-style probe into a Checker.
type pingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (c *pingChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: c.name, Healthy: true}
	if err := c.ping(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// NewDBChecker probes the backing database connection.
func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &pingChecker{name: "db", ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

// NewRedisChecker probes the cache and rate-limit backend.
func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &pingChecker{name: "redis", ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}
