// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bloodlink/internal/http/handlers"
	"bloodlink/internal/http/middleware"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/modules/response"
)

func NewRouter(
	profileService *profile.Service,
	matchingService *matching.Service,
	requestService *request.Service,
	responseService *response.Service,
	jwtSecret string,
	log *zap.Logger,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(jwtSecret))

	profileHandler := handlers.NewProfileHandler(profileService)
	api.GET("/profile", profileHandler.Get)
	api.PUT("/profile/availability", profileHandler.SetAvailability)
	api.PUT("/profile/location", profileHandler.SetLocation)
	api.PUT("/profile/last-donation", profileHandler.SetLastDonation)
	api.GET("/profile/stats", profileHandler.Stats)

	matchingHandler := handlers.NewMatchingHandler(matchingService, profileService)
	api.GET("/donors/nearby", matchingHandler.NearbyDonors)
	api.GET("/requests/nearby", matchingHandler.NearbyRequests)

	requestHandler := handlers.NewRequestHandler(requestService, profileService)
	api.POST("/requests", requestHandler.Create)
	api.GET("/requests/mine", requestHandler.ListMine)
	api.GET("/requests/:id", requestHandler.Get)
	api.GET("/requests/:id/fanout", requestHandler.NotifiedDonors)
	api.PATCH("/requests/:id/status", requestHandler.UpdateStatus)
	api.DELETE("/requests/:id", requestHandler.Delete)

	responseHandler := handlers.NewResponseHandler(responseService, profileService)
	api.POST("/requests/:id/responses", responseHandler.Submit)
	api.GET("/requests/:id/responses", responseHandler.ListForRequest)
	api.POST("/responses/:id/accept", responseHandler.Accept)
	api.POST("/responses/:id/decline", responseHandler.Decline)
	api.PATCH("/responses/:id", responseHandler.EditMessage)
	api.DELETE("/responses/:id", responseHandler.Withdraw)

	return r
}
