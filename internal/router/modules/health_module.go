package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/organizer-billing/pkg/response"
)

// Check pings one backend.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// HealthModule reports backend reachability. A failing required check turns
// the response into 503; optional ones only show up as "down".
type HealthModule struct {
	Checks  []Check
	Timeout time.Duration
}

func NewHealthModule(checks ...Check) *HealthModule {
	return &HealthModule{Checks: checks, Timeout: 2 * time.Second}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.health)
}

func (m *HealthModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.Timeout)
	defer cancel()

	status := http.StatusOK
	states := make(map[string]string, len(m.Checks))
	for _, chk := range m.Checks {
		if err := chk.Ping(ctx); err != nil {
			states[chk.Name] = "down"
			if chk.Required {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		states[chk.Name] = "up"
	}

	if status != http.StatusOK {
		response.JSON(c, response.Error[map[string]string](c, status, "unhealthy", states))
		return
	}
	response.JSON(c, response.Success(c, status, states, "ok", nil))
}
