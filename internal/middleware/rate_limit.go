package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

// 固定ウィンドウのレート制限（書き込みAPI用）。
// キーはユーザーID、なければIP。rdbがnilまたはlimit<=0なら素通し
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			key := rateKey(c, now, window)

			ctx := c.Request().Context()
			var incr *redis.IntCmd
			_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				pipe.Expire(ctx, key, window)
				return nil
			})
			if err != nil {
				//Redis障害時は制限しない
				c.Logger().Warnj(log.JSON{
					"msg":   "rate limit unavailable",
					"key":   key,
					"error": err.Error(),
				})
				return next(c)
			}

			count := incr.Val()
			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				reset := window - time.Duration(now.UnixNano()%int64(window))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
				return c.JSON(http.StatusTooManyRequests, errorJSON("rate limit exceeded"))
			}
			return next(c)
		}
	}
}

func rateKey(c echo.Context, now time.Time, window time.Duration) string {
	bucket := now.UnixNano() / int64(window)
	if uid, ok := c.Get(CtxUserIDKey).(int64); ok && uid > 0 {
		return fmt.Sprintf("ratelimit:user:%d:%d", uid, bucket)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("ratelimit:ip:%s:%d", ip, bucket)
}
