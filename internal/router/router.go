package router

import (
	"net/http"
	"time"

	"flashfeed/internal/handlers"
	"flashfeed/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TokenService issues tokens at login and verifies them on every request.
type TokenService interface {
	handlers.TokenIssuer
	middleware.TokenParser
}

// Deps carries everything the route table needs.
type Deps struct {
	Tokens   TokenService
	Users    handlers.UserStore
	Posts    handlers.PostStore
	Comments handlers.CommentStore
	Feed     handlers.FeedReader
	Toggles  handlers.EdgeToggler
	Limiter  middleware.Limiter // nil disables rate limiting

	PageSize       int
	RequestTimeout time.Duration
	CORSOrigins    []string
	Ready          func() error // readiness probe for /healthz, nil means always ready
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestID())
	r.Use(corsMiddleware(d.CORSOrigins))
	r.Use(middleware.Metrics())
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.LoadUser(d.Tokens))

	// Handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	userHandler := handlers.NewUserHandler(d.Users, d.Tokens)
	followHandler := handlers.NewFollowHandler(d.Toggles, d.Users)
	postHandler := handlers.NewPostHandler(d.Feed, d.Posts, d.PageSize)
	likeHandler := handlers.NewLikeHandler(d.Toggles, d.Feed)
	bookmarkHandler := handlers.NewBookmarkHandler(d.Toggles, d.Feed)
	commentHandler := handlers.NewCommentHandler(d.Comments)

	limit := middleware.RateLimit(d.Limiter)

	// 运维路由
	r.GET("/healthz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				c.String(http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", middleware.MetricsHandler())

	// 公共路由 (Public Routes)
	r.POST("/auth/token", limit, authHandler.Token)       // 登录，换取 token
	r.POST("/auth/register", limit, authHandler.Register) // 注册
	r.POST("/users", limit, userHandler.Create)           // 注册并返回用户

	// 受保护路由 (Protected Routes)
	users := r.Group("/users", middleware.AuthRequired())
	{
		users.GET("", userHandler.List)                                                     // 全部用户
		users.GET("/search", userHandler.Search)                                            // 搜索用户
		users.GET("/:ref", userHandler.Profile)                                             // 用户主页信息
		users.PATCH("/:ref", middleware.CorrectUserParam("ref"), limit, userHandler.Update) // 修改资料
		users.GET("/:ref/liked", likeHandler.List)                                          // 点赞过的帖子
		users.GET("/:ref/bookmarked", bookmarkHandler.List)                                 // 收藏的帖子
	}

	follows := r.Group("/follows", middleware.AuthRequired())
	{
		follows.POST("/toggle", limit, followHandler.Toggle)    // 关注/取消关注
		follows.GET("/is-following", followHandler.IsFollowing) // 是否已关注
		follows.GET("/:id/followed", followHandler.Followed)    // 关注的人
		follows.GET("/:id/followers", followHandler.Followers)  // 粉丝
	}

	posts := r.Group("/posts", middleware.AuthRequired())
	{
		posts.GET("", postHandler.List)                              // 全部可见帖子
		posts.GET("/feed", postHandler.Feed)                         // 关注的人的帖子
		posts.GET("/user/:ref", postHandler.ByUser)                  // 某个用户的帖子
		posts.GET("/:id", postHandler.Detail)                        // 帖子详情
		posts.POST("", limit, postHandler.Create)                    // 发帖
		posts.PATCH("/:id", limit, postHandler.Update)               // 编辑帖子
		posts.DELETE("/:id", postHandler.Delete)                     // 删除帖子
		posts.POST("/:id/privacy", limit, postHandler.TogglePrivacy) // 切换私密
		posts.POST("/like", limit, likeHandler.Toggle)               // 点赞/取消点赞
		posts.POST("/bookmark", limit, bookmarkHandler.Toggle)       // 收藏/取消收藏
		posts.GET("/:id/is-liked", likeHandler.IsLiked)              // 是否已点赞
	}

	comments := r.Group("/comments", middleware.AuthRequired())
	{
		comments.POST("/create", limit, commentHandler.Create)    // 发表评论
		comments.DELETE("/:id", commentHandler.Delete)            // 删除评论
		comments.GET("/post/:postId", commentHandler.ListForPost) // 帖子的评论
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
