package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxTrackedVisitors 限流名單上限，滿了先清閒置來源
const maxTrackedVisitors = 10000

// RateLimiter 單一來源的令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   requests,
		capacity: requests,
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	newTokens := int(elapsed * rl.rate)
	if newTokens > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+newTokens)
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}

type visitor struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// visitorRegistry 依來源 IP 分桶。爬蟲額度與 AI 配額都是花錢的資源，
// 單一來源不該吃光全站額度
type visitorRegistry struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	requests int
	window   time.Duration
}

func (r *visitorRegistry) limiterFor(ip string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	v, ok := r.visitors[ip]
	if !ok {
		if len(r.visitors) >= maxTrackedVisitors {
			r.prune(now)
		}
		v = &visitor{limiter: NewRateLimiter(r.requests, r.window)}
		r.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// prune 清掉閒置超過三個窗口的來源，呼叫端須持有鎖
func (r *visitorRegistry) prune(now time.Time) {
	idle := 3 * r.window
	for ip, v := range r.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(r.visitors, ip)
		}
	}
}

// RateLimit 限流中間件，每個來源 IP 一個令牌桶
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	registry := &visitorRegistry{
		visitors: make(map[string]*visitor),
		requests: requests,
		window:   window,
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !registry.limiterFor(ip).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       common.ErrTooManyRequests.Message,
				"code":        common.ErrCodeTooManyRequests,
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
