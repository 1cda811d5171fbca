package router

import (
	"net/http"

	"Vid_Community/internal/config"
	"Vid_Community/internal/handler"
	"Vid_Community/internal/middleware"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config       *config.ServiceConfig
	Logger       zerolog.Logger
	Users        *service.UserService
	Limiter      *middleware.IPRateLimiter
	User         *handler.UserHandler
	Video        *handler.VideoHandler
	Post         *handler.PostHandler
	Comment      *handler.CommentHandler
	Subscription *handler.SubscriptionHandler
}

func InitRouter(p Params) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}
	if p.Config.GinMode != "" {
		gin.SetMode(p.Config.GinMode)
	}

	r := gin.New()
	maxBody := p.Config.MaxUploadMB << 20
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery(), middleware.RequestLogger(p.Logger), middleware.Metrics(), middleware.BodyLimit(maxBody))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", middleware.MetricsHandler())

	api := r.Group("/api")

	// 注册与 token 接口无需登录，按 IP 限流
	public := api.Group("", p.Limiter.Middleware())
	{
		public.POST("/register/", p.User.Register)
		public.POST("/token/", p.User.Token)
		public.POST("/token/refresh/", p.User.Refresh)
		public.POST("/token/blacklist/", p.User.Blacklist)
	}

	authed := api.Group("", middleware.AuthMiddleware(p.Users))

	// 视频
	{
		authed.GET("/videos/", p.Video.List)
		authed.POST("/videos/", p.Video.Create)
		authed.GET("/videos/:id/", p.Video.Get)
		authed.PUT("/videos/:id/", p.Video.Update)
		authed.DELETE("/videos/:id/", p.Video.Delete)
	}

	// 帖子
	{
		authed.GET("/posts/", p.Post.List)
		authed.POST("/posts/", p.Post.Create)
		authed.GET("/posts/:id/", p.Post.Get)
		authed.PUT("/posts/:id/", p.Post.Update)
		authed.DELETE("/posts/:id/", p.Post.Delete)
	}

	// 评论
	{
		authed.GET("/comments/", p.Comment.List)
		authed.POST("/comments/", p.Comment.Create)
		authed.GET("/comments/:id/", p.Comment.Get)
		authed.DELETE("/comments/:id/", p.Comment.Delete)
	}

	// 订阅
	{
		authed.GET("/subscriptions/", p.Subscription.List)
		authed.POST("/subscriptions/", p.Subscription.Create)
		authed.DELETE("/subscriptions/:id/", p.Subscription.Delete)
	}

	return r, nil
}
