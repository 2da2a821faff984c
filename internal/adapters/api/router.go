package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RouterOptions struct {
	RateLimit float64
	RateBurst int
	Logger    *log.Logger
}

// NewRouter creates and configures the pool API router.
func NewRouter(pool Pool, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}

	handler := NewHandler(pool, opts.Logger)

	api := r.Group("/api")
	api.Use(RateLimiter(rate.Limit(opts.RateLimit), opts.RateBurst))
	{
		api.GET("/pool", handler.GetPool)
		api.POST("/pool/consume", handler.Consume)
		api.POST("/pool/restore", handler.Restore)
		api.GET("/pool/message", handler.GetMessage)
		api.POST("/pool/message/ack", handler.AckMessage)
		api.GET("/pool/events", handler.Events)
	}

	return r
}
