package middleware

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/washplan/washplan/internal/pkg/bookingcontext"
	"github.com/washplan/washplan/internal/pkg/cache"
	"github.com/washplan/washplan/internal/pkg/env"
)

// BookingRateLimiter throttles wizard submissions per booking token. The
// counters live in Redis so the limit holds across instances. Requests
// without a booking context fall back to per-IP limiting.
func BookingRateLimiter() fiber.Handler {
	maxRequests := env.GetEnvInt("RATE_LIMIT_MAX", 30)
	if maxRequests <= 0 {
		maxRequests = 30
	}
	window := env.GetEnvDuration("RATE_LIMIT_WINDOW_MINUTES", time.Minute, 10*time.Minute)

	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		Storage:    newLimiterStorage(),
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := bookingcontext.GetBookingID(c); id != 0 {
				return "booking:" + strconv.FormatUint(uint64(id), 10)
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
		},
	})
}

// newLimiterStorage builds Redis storage from the shared cache client
// configuration, on its own database so counters never collide with cache
// keys.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 2,
		Reset:    false,
	})
}
