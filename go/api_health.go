package marketserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
)

// WatcherStatus is the part of the settlement watcher the health probe reads.
type WatcherStatus interface {
	State() paymentsapp.WatcherState
}

// HealthAPI serves the liveness probe.
type HealthAPI struct {
	watcher WatcherStatus
}

// NewHealthAPI reports the settlement watcher state alongside liveness.
func NewHealthAPI(watcher WatcherStatus) HealthAPI {
	return HealthAPI{watcher: watcher}
}

// Get /healthz
// Always 200; the watcher state is informational.
func (api *HealthAPI) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if api.watcher != nil {
		body["watcher"] = api.watcher.State().String()
	}
	c.JSON(http.StatusOK, body)
}
