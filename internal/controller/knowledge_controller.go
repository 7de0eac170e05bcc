package controller

import (
	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/serverutils"
	"knowledge-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	RefreshKnowledge(ctx *fiber.Ctx) error
	RefreshStatus(ctx *fiber.Ctx) error
	RefreshRuns(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	service service.IKnowledgeService
}

func NewKnowledgeController(service service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{service: service}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	r.Post("/refresh_knowledge", c.RefreshKnowledge)
	r.Get("/refresh_status", c.RefreshStatus)
	r.Get("/refresh_runs", c.RefreshRuns)
}

func (c *knowledgeController) RefreshKnowledge(ctx *fiber.Ctx) error {
	var req dto.RefreshKnowledgeRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	res, err := c.service.TriggerRefresh(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	msg := "Knowledge base refresh started successfully"
	if res.Status == service.RefreshStatusAlreadyRunning {
		msg = "Knowledge base refresh is already in progress"
	}
	return ctx.JSON(serverutils.SuccessResponse(msg, res))
}

func (c *knowledgeController) RefreshStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get refresh status", c.service.Status()))
}

func (c *knowledgeController) RefreshRuns(ctx *fiber.Ctx) error {
	res, err := c.service.GetRuns(ctx.UserContext(), ctx.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get refresh runs", res))
}
