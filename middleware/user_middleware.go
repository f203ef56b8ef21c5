package middleware

import (
	"approvals-backend/fiberlog"
	authutils "approvals-backend/lib/utils/auth-utils"
	apimodels "approvals-backend/models/api"
	"github.com/gofiber/fiber/v2"
)

func GetUserID(ctx *fiber.Ctx) string {
	claims := authutils.GetClaims(ctx)
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

// UserRequired rejects tokens without a subject.
func UserRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userID := GetUserID(ctx)
		if userID == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(apimodels.NewError("token has no user"))
		}
		ctx.Locals(fiberlog.TagUserID, userID)
		return ctx.Next()
	}
}
