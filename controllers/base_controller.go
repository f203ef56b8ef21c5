package controllers

import (
	"strings"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/middleware"
	apimodels "approvals-backend/models/api"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type BaseAPIController struct{}

func (c *BaseAPIController) BodyParser(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		log.WithError(err).Error("failed to parse request body")
		return errors.New("failed to read request data")
	}
	return nil
}

func (c *BaseAPIController) GetID(ctx *fiber.Ctx) (string, error) {
	return c.GetIDByKey(ctx, "id")
}

func (c *BaseAPIController) GetIDByKey(ctx *fiber.Ctx, key string) (string, error) {
	id := strings.TrimSpace(ctx.Params(key))
	if id == "" {
		return "", errors.Errorf("parameter %s is not specified", key)
	}
	return id, nil
}

func (c *BaseAPIController) GetLogger(ctx *fiber.Ctx) *log.Entry {
	return log.
		WithField("method", ctx.Method()).
		WithField("path", ctx.Path()).
		WithField("user_id", middleware.GetUserID(ctx))
}

// SendError maps the error taxonomy onto HTTP statuses. Typed errors carry a message meant for
// the caller; anything else is logged and answered with msg.
func (c *BaseAPIController) SendError(ctx *fiber.Ctx, logger *log.Entry, err error, msg string) error {
	status := StatusOf(err)
	switch {
	case status == fiber.StatusInternalServerError:
		logger.WithError(err).Error(msg)
		return ctx.Status(status).JSON(apimodels.NewError(msg))
	case status >= fiber.StatusInternalServerError:
		logger.WithError(err).Warn(msg)
		return ctx.Status(status).JSON(apimodels.NewError(msg))
	}
	return ctx.Status(status).JSON(apimodels.NewError(err.Error()))
}

func StatusOf(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return fiber.StatusBadRequest
	case apperrors.IsPermissionDenied(err):
		return fiber.StatusForbidden
	case apperrors.IsNotFound(err):
		return fiber.StatusNotFound
	case apperrors.IsInvalidTransition(err):
		return fiber.StatusConflict
	case apperrors.IsGateway(err):
		return fiber.StatusBadGateway
	case apperrors.IsTransient(err):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
