// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ridesim/internal/http/handlers"
	"ridesim/internal/http/middleware"
	"ridesim/internal/modules/simulation"
)

func NewRouter(sim *simulation.Service, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	h := handlers.NewSimulationHandler(sim)
	api := r.Group("/api")
	api.GET("/state", h.State)
	api.POST("/vehicles", h.AddVehicle)
	api.POST("/passengers", h.AddPassengers)
	api.POST("/start", h.Start)
	api.POST("/reset", h.Reset)
	return r
}
