package router

import (
	"context"

	"github.com/oksasatya/organizer-billing/internal/container"
	handlers "github.com/oksasatya/organizer-billing/internal/interface/http"
	"github.com/oksasatya/organizer-billing/internal/router/modules"
)

// InitModules builds the HTTP handlers from c and registers their modules.
// Call it once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	r.Add(modules.NewHealthModule(healthChecks(c)...))

	billing := handlers.NewBillingHandler(c.Onboarding, c.Accounts, c.Logger, c.Config.UploadMaxBytes)
	r.Add(modules.NewBillingModule(billing, c.JWT, c.Redis, c.Config.SessionCheckEnabled))

	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}

// healthChecks lists the backends the container actually connected.
// Postgres backs every billing operation; Redis only the cache and limits.
func healthChecks(c *container.Container) []modules.Check {
	var checks []modules.Check
	if c.PGPool != nil {
		checks = append(checks, modules.Check{Name: "postgres", Required: true, Ping: c.PGPool.Ping})
	}
	if c.Redis != nil {
		rdb := c.Redis
		checks = append(checks, modules.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}
