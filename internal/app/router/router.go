package router

import (
	"github.com/gin-gonic/gin"

	accounthandler "account_backend/internal/feature/account/transport/handler"
	platformhandler "account_backend/internal/platform/http/handler"
	jwtmw "account_backend/internal/platform/jwt"
	"account_backend/internal/shared/ratelimiter"
)

// Options はルータ生成時の設定です。
type Options struct {
	// StaticDir は /files で配信するディレクトリです。空なら配信しません。
	StaticDir string
	// Pinger は /healthz で疎通確認するバックエンドです。nilでもよい。
	Pinger platformhandler.Pinger
	// LoginLimiter はクライアントごとのログイン試行を制限します。nilなら制限しません。
	LoginLimiter *ratelimiter.RateLimiter
}

func NewRouter(accounts *accounthandler.AccountHandler, decoder jwtmw.TokenDecoder, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(securityHeaders())

	// 認証不要
	// 導通確認用
	r.GET("/ping", platformhandler.Ping)
	r.GET("/echo/:echo", platformhandler.Echo)
	health := platformhandler.Health(opts.Pinger)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	if opts.StaticDir != "" {
		r.Static("/files", opts.StaticDir)
	}

	api := r.Group("/api")
	// ログイン（Cookie "t" にトークンを設定）
	if opts.LoginLimiter != nil {
		api.POST("/login", opts.LoginLimiter.Middleware(), accounts.Login)
	} else {
		api.POST("/login", accounts.Login)
	}
	// 新規ユーザー登録
	api.POST("/users", accounts.Create)

	// 認証必須のルート
	// Cookie "t" のトークンが必要になる
	auth := api.Group("/")
	auth.Use(jwtmw.AuthRequired(decoder))
	{
		auth.GET("/users", accounts.List)
		// :id はUUIDならID検索、それ以外はメールアドレス検索
		auth.GET("/users/:id", accounts.Get)
		auth.PUT("/users/:id", accounts.Update)
		auth.PATCH("/users/:id", accounts.ChangePassword)
		auth.DELETE("/users/:id", accounts.Delete)
	}

	return r
}

// securityHeaders は全レスポンスに基本的なセキュリティヘッダーを付与します。
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}
