package apiv1

import (
	"fmt"
	"time"

	"approvals-backend/controllers"
	approvalhandler "approvals-backend/lib/approval"
	"approvals-backend/middleware"
	"approvals-backend/models"
	apimodels "approvals-backend/models/api"
	approvalapimodels "approvals-backend/models/api/approval"
	"github.com/gofiber/fiber/v2"
)

type approvalApiController struct {
	controllers.BaseAPIController
	handler approvalhandler.Provider
}

func InitApprovalApiRouters(app fiber.Router, handler approvalhandler.Provider) {
	controller := approvalApiController{handler: handler}
	app.Route("approvals", func(router fiber.Router) {
		router.Post("", controller.create)
		router.Post("list", controller.list)
		router.Post("export", controller.export)
		router.Get("entity/:type/:entityId", controller.getForEntity)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Put("submit", controller.submit) // first submission and resubmission after a revision
			idRoute.Post("respond", controller.respond)
			idRoute.Post("comments", controller.addComment)
			idRoute.Put("approvers", controller.saveApprovers)
		})
	})
}

// @Summary Create
// @Tags Approvals
// @Description Creates an approval request for an entity, as a draft or already submitted
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.ApprovalCreateData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals [post]
func (c *approvalApiController) create(ctx *fiber.Ctx) error {
	var payload approvalapimodels.ApprovalCreateData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.Create(ctx.UserContext(), middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to create approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary List
// @Tags Approvals
// @Description Approvals the user requested, has to review or administers
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.ApprovalFilter	true	"request body"
// @Success 200 {object} apimodels.ScrollerResponse{data=[]approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/list [post]
func (c *approvalApiController) list(ctx *fiber.Ctx) error {
	var payload approvalapimodels.ApprovalFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.ListForUser(ctx.UserContext(), middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list approvals")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewScrollerResponse(result.Items, result.RowCount))
}

// @Summary Export
// @Tags Approvals
// @Description XLSX export of the approval list
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.ApprovalFilter	true	"request body"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/export [post]
func (c *approvalApiController) export(ctx *fiber.Ctx) error {
	var payload approvalapimodels.ApprovalFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	payload.Page = 1
	payload.Limit = 100
	data, err := c.handler.ExportForUser(ctx.UserContext(), middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to export approvals")
	}
	fileName := fmt.Sprintf("approvals-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

// @Summary Approval of an entity
// @Tags Approvals
// @Description The most recent approval created for the entity
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   type          		path    	string  true    "entity type"
// @Param   entityId       		path    	string  true    "entity ID"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/entity/{type}/{entityId} [get]
func (c *approvalApiController) getForEntity(ctx *fiber.Ctx) error {
	entityType, err := c.GetIDByKey(ctx, "type")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	entityID, err := c.GetIDByKey(ctx, "entityId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.GetForEntity(ctx.UserContext(), models.EntityType(entityType), entityID, middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to get approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Details
// @Tags Approvals
// @Description Approval with approvers, responses, comments, history and the actions allowed to the caller
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  true    "approval ID"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/{id} [get]
func (c *approvalApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.GetDetails(ctx.UserContext(), id, middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to get approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Submit
// @Tags Approvals
// @Description Sends a draft or a returned approval to the approvers
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  true    "approval ID"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/{id}/submit [put]
func (c *approvalApiController) submit(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.Submit(ctx.UserContext(), id, middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to submit approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Respond
// @Tags Approvals
// @Description Approver decision: approved, declined or revision_requested. Declining and requesting a revision need a comment
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  true    "approval ID"
// @Param	body body	 approvalapimodels.ApprovalRespondData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/{id}/respond [post]
func (c *approvalApiController) respond(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.ApprovalRespondData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.Respond(ctx.UserContext(), id, middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to record response")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Comment
// @Tags Approvals
// @Description Adds a comment to the approval discussion
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  true    "approval ID"
// @Param	body body	 approvalapimodels.ApprovalCommentData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/{id}/comments [post]
func (c *approvalApiController) addComment(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.ApprovalCommentData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.AddComment(ctx.UserContext(), id, middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to add comment")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Approvers
// @Tags Approvals
// @Description Replaces the approver set. Removed approvers lose their responses
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  true    "approval ID"
// @Param	body body	 approvalapimodels.ApprovalApproversData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approvals/{id}/approvers [put]
func (c *approvalApiController) saveApprovers(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.ApprovalApproversData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, err := c.handler.UpdateApprovers(ctx.UserContext(), id, middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to update approvers")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}
