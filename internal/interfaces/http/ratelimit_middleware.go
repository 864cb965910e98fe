package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Almacen-api/internal/application/dto"
	"github.com/jhoicas/Almacen-api/internal/infrastructure/redis"
)

// RateLimiter limita peticiones por IP usando un contador en Redis. Se aplica
// a las rutas públicas de auth para frenar fuerza bruta de credenciales.
func RateLimiter(client redis.Client, limit int, duration time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "rate-limit:" + c.IP()
		ctx := context.Background()

		count, err := client.GetInt(ctx, key)
		if err == redis.ErrCacheMiss {
			_ = client.Set(ctx, key, 1, duration)
			c.Set("X-RateLimit-Remaining", strconv.Itoa(limit-1))
			return c.Next()
		} else if err != nil {
			// Redis caído no debe tumbar el API: se deja pasar sin contar.
			return c.Next()
		}

		if count >= limit {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMIT", Message: "demasiadas peticiones, intente más tarde"})
		}

		_ = client.Incr(ctx, key)
		c.Set("X-RateLimit-Remaining", strconv.Itoa(limit-count-1))
		return c.Next()
	}
}
