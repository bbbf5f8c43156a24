package serverutils

import (
	"os"

	"knowledge-base-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IdentityKey is the fiber.Ctx local under which the caller identity lives.
const IdentityKey = "identity"

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	userIdStr, _ := claims["user_id"].(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	department, _ := claims["department"].(string)
	admin, _ := claims["admin"].(bool)

	ctx.Locals(IdentityKey, entity.Identity{
		UserId:     userId,
		Department: department,
		Admin:      admin,
	})
	return ctx.Next()
}

// IdentityFromCtx pulls the authenticated identity set by JwtMiddleware.
func IdentityFromCtx(ctx *fiber.Ctx) entity.Identity {
	identity, _ := ctx.Locals(IdentityKey).(entity.Identity)
	return identity
}
