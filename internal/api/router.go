package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter mounts both route shapes: path parameters under /chats/id and
// /chats/user, and the combined ?id= / ?username= query on GET /chats.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	// ErrorHandler and Recovery write through the gzip writer, which commits
	// the response when it closes.
	r.Use(
		RequestLogger(),
		Metrics(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		ErrorHandler(),
		gin.Recovery(),
	)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	chats := r.Group("/chats")
	if opts.RateLimitRPS > 0 {
		chats.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	{
		chats.POST("", h.CreateChat)
		chats.POST("/", h.CreateChat)
		chats.GET("", h.GetChats)
		chats.GET("/id/:id", h.GetChatByID)
		chats.GET("/user/:username", h.ListChatsForUser)
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/sweeper/start", h.StartSweeper)
		v1.POST("/sweeper/stop", h.StopSweeper)
		v1.GET("/sweeper/status", h.SweeperStatus)
	}
	return r
}
