package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// ErrLog reports every 5xx answer with the route and the error message of the envelope.
func ErrLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		statusCode := c.Response().StatusCode()
		if statusCode < fiber.StatusInternalServerError {
			return err
		}
		var data struct {
			Message string `json:"message"`
		}
		if unmErr := json.Unmarshal(c.Response().Body(), &data); unmErr != nil {
			data.Message = string(c.Response().Body())
		}
		path := c.OriginalURL()
		if r := c.Route(); r != nil {
			path = r.Path
		}
		log.
			WithField("code", statusCode).
			WithField("method", c.Method()).
			WithField("path", path).
			WithField("user_id", GetUserID(c)).
			Error(data.Message)
		return err
	}
}
