// middleware/ratelimit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 基于 Redis 的固定窗口限流，聊天发送和 REST 入口共用
type RateLimiter struct {
	rdb       *redis.Client
	perSecond int
}

func NewRateLimiter(rdb *redis.Client, perSecond int) *RateLimiter {
	return &RateLimiter{rdb: rdb, perSecond: perSecond}
}

// Allow 指定 key 在当前窗口内是否还允许一次操作。
// Redis 不可用时放行，限流只是保护不是门禁。
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l.rdb == nil {
		return true
	}
	full := "ratelimit:" + key
	count, err := l.rdb.Incr(ctx, full).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.rdb.Expire(ctx, full, time.Second)
	}
	return count <= int64(l.perSecond)
}

// AllowUser 按用户限流
func (l *RateLimiter) AllowUser(ctx context.Context, userID int64) bool {
	return l.Allow(ctx, fmt.Sprintf("user:%d", userID))
}

// RateLimit gin 中间件，按客户端 IP 限流
func (l *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.Request.Context(), "ip:"+c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
