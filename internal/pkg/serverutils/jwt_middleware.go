package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalClientId = "client_id"
	LocalRole     = "role"
)

// JwtMiddleware reads client_id and role from a bearer token. An empty secret turns
// auth off and trusts the client id sent with the request.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}

		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing token"))
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid claims"))
		}

		clientId, _ := claims["client_id"].(string)
		if clientId == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Token has no client_id"))
		}
		role, _ := claims["role"].(string)

		ctx.Locals(LocalClientId, clientId)
		ctx.Locals(LocalRole, role)
		return ctx.Next()
	}
}

// AdminOnly must run after JwtMiddleware. It is a no-op when auth is off.
func AdminOnly(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}
		if role, _ := ctx.Locals(LocalRole).(string); role != "admin" {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Access denied: Admins only"))
		}
		return ctx.Next()
	}
}

// ClientId prefers the token's client id over the one supplied by the caller.
func ClientId(ctx *fiber.Ctx, fallback string) string {
	if id, ok := ctx.Locals(LocalClientId).(string); ok && id != "" {
		return id
	}
	return fallback
}
