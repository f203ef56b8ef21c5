package fiberlog

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	TagPid       = "pid"
	TagLatency   = "latency"
	TagMethod    = "method"
	TagPath      = "path"
	TagStatus    = "status"
	TagIP        = "ip"
	TagUserAgent = "user_agent"
	TagBody      = "body"
	TagResBody   = "res_body"
	TagBytesSent = "bytes_sent"
	RequestID    = "request_id"
	TagUserID    = "user_id"
)

// data is shared by the tag functions of one request.
type data struct {
	pid   int
	start time.Time
	end   time.Time
}

// FuncTag extracts one log field from the request.
type FuncTag func(c *fiber.Ctx, d *data) interface{}

// maxBodyLength caps logged bodies so that exports and large payloads do not flood the log.
const maxBodyLength = 2048

func truncate(body []byte) string {
	if len(body) > maxBodyLength {
		return string(body[:maxBodyLength]) + "..."
	}
	return string(body)
}

func getFuncTagMap(cfg Config) map[string]FuncTag {
	all := map[string]FuncTag{
		TagPid:       func(_ *fiber.Ctx, d *data) interface{} { return d.pid },
		TagLatency:   func(_ *fiber.Ctx, d *data) interface{} { return d.end.Sub(d.start).String() },
		TagMethod:    func(c *fiber.Ctx, _ *data) interface{} { return c.Method() },
		TagPath:      func(c *fiber.Ctx, _ *data) interface{} { return c.Path() },
		TagStatus:    func(c *fiber.Ctx, _ *data) interface{} { return c.Response().StatusCode() },
		TagIP:        func(c *fiber.Ctx, _ *data) interface{} { return c.IP() },
		TagUserAgent: func(c *fiber.Ctx, _ *data) interface{} { return c.Get(fiber.HeaderUserAgent) },
		TagBody:      func(c *fiber.Ctx, _ *data) interface{} { return truncate(c.Body()) },
		TagBytesSent: func(c *fiber.Ctx, _ *data) interface{} { return len(c.Response().Body()) },
		RequestID:    func(c *fiber.Ctx, _ *data) interface{} { return c.Get(fiber.HeaderXRequestID) },
		TagUserID:    userIDTag,
		TagResBody:   resBodyTag,
	}
	result := make(map[string]FuncTag, len(cfg.Tags))
	for _, tag := range cfg.Tags {
		if ft, ok := all[tag]; ok {
			result[tag] = ft
		}
	}
	return result
}

func userIDTag(c *fiber.Ctx, _ *data) interface{} {
	userID, _ := c.Locals(TagUserID).(string)
	return userID
}

// resBodyTag logs JSON responses only; file downloads are skipped.
func resBodyTag(c *fiber.Ctx, _ *data) interface{} {
	if !strings.HasPrefix(string(c.Response().Header.ContentType()), fiber.MIMEApplicationJSON) {
		return ""
	}
	return truncate(c.Response().Body())
}
