package controller

import (
	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/serverutils"
	"knowledge-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	chat      service.IChatService
	knowledge service.IKnowledgeService
	instance  string
}

func NewHealthController(chat service.IChatService, knowledge service.IKnowledgeService, instance string) IHealthController {
	return &healthController{chat: chat, knowledge: knowledge, instance: instance}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("ok", dto.HealthResponse{
		Status:         "ok",
		ActiveSessions: c.chat.ActiveSessions(),
		KnowledgeFiles: c.knowledge.DocumentCount(),
		RefreshRunning: c.knowledge.Status().IsRunning,
		Instance:       c.instance,
	}))
}
