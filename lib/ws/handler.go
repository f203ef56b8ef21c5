package ws

import (
	wsclient "approvals-backend/lib/ws/client"
	connectionhub "approvals-backend/lib/ws/hub/connection-hub"
	"approvals-backend/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// InitWs mounts the approval push endpoint. The router must already be JWT protected.
func InitWs(router fiber.Router, hub connectionhub.Provider) {
	router.Use("", func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		ctx.Locals("userID", middleware.GetUserID(ctx))
		return ctx.Next()
	})
	router.Get("/", websocket.New(func(c *websocket.Conn) {
		pushHandler(hub, c)
	}))
}

// @Summary Approval change pushes
// @Tags Websocket
// @Description Pushes an approval_changed message to every connected participant of a changed approval
// @Param   Authorization		header		string		true		"Authorization token"
// @Success 200 {object} wsmodels.ServerMessage
// @Failure 400
// @Failure 403
// @Failure 500
// @router /ws [get]
func pushHandler(hub connectionhub.Provider, c *websocket.Conn) {
	userID, _ := c.Locals("userID").(string)
	client := wsclient.NewClient(userID, c)
	hub.AddClient(userID, c)
	defer hub.DeleteClient(userID, c)
	client.Dispatch()
}
