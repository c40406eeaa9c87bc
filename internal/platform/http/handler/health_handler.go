// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readinessTimeout はバックエンドへの疎通確認の上限時間です。
const readinessTimeout = 2 * time.Second

// Pinger はストアなど疎通確認が可能なバックエンドを表します。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping は /ping の生存確認に "PONG!" を返します。
func Ping(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.String(http.StatusOK, "PONG!")
}

// Echo は /echo/:echo のパスセグメントをそのまま返します。
func Echo(c *gin.Context) {
	c.String(http.StatusOK, c.Param("echo"))
}

// Health は /healthz を処理するハンドラーを返します。
// pinger が nil の場合はプロセスの生存のみを報告します。
func Health(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		status, body := http.StatusOK, "ok"
		if pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				slog.Warn("readiness check failed", "error", err)
				status, body = http.StatusServiceUnavailable, "unavailable"
			}
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		c.JSON(status, gin.H{"status": body})
	}
}
