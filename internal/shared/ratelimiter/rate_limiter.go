// Package ratelimiter はクライアントごとの固定ウィンドウ方式のレート制限を提供します。
package ratelimiter

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// sweepThreshold を超えたら期限切れのウィンドウを掃除する
const sweepThreshold = 1024

// RateLimiter は、キー（クライアントIPなど）ごとに interval あたり limit 回まで許可します。
// 上限を超えた呼び出しは待機せずに拒否します。
type RateLimiter struct {
	mu       sync.Mutex
	limit    int           // interval あたりの上限
	interval time.Duration // どの単位でリセットするか
	windows  map[string]*window
	now      func() time.Time
}

type window struct {
	count     int
	lastReset time.Time
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		interval: interval,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow はkeyの呼び出しを1回数え、許可されるかどうかを返します。
// 拒否した場合はウィンドウがリセットされるまでの時間も返します。
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	// interval を過ぎたらカウントリセット
	if !ok || now.Sub(w.lastReset) >= rl.interval {
		if !ok && len(rl.windows) >= sweepThreshold {
			rl.sweep(now)
		}
		w = &window{lastReset: now}
		rl.windows[key] = w
	}

	w.count++
	if w.count > rl.limit {
		return false, rl.interval - now.Sub(w.lastReset)
	}
	return true, 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	for k, w := range rl.windows {
		if now.Sub(w.lastReset) >= rl.interval {
			delete(rl.windows, k)
		}
	}
}

// Middleware はクライアントIPごとに制限するGinミドルウェアを返します。
// 上限超過時は429とRetry-Afterヘッダーを返します。
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(c.ClientIP())
		if !ok {
			slog.Warn("[RATE LIMIT] request rejected", "remote_addr", c.ClientIP(), "path", c.FullPath(), "retry_after", retryAfter)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
