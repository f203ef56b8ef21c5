package fiberlog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Config is config for middleware
type Config struct {
	Logger *logrus.Logger
	Tags   []string
	// WarnStatus is the lowest response status logged at warn level. Zero means 400.
	WarnStatus int
	// Skip drops the log line of matching requests.
	Skip func(c *fiber.Ctx) bool
}

// ConfigDefault is the default config
var ConfigDefault = Config{
	Tags: []string{
		TagStatus,
		TagLatency,
		TagMethod,
		TagPath,
		TagUserID,
	},
	WarnStatus: fiber.StatusBadRequest,
}

func (c Config) warnStatus() int {
	if c.WarnStatus <= 0 {
		return fiber.StatusBadRequest
	}
	return c.WarnStatus
}
