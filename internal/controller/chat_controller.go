package controller

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/serverutils"
	"knowledge-chat-be/internal/service"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

const invalidHistoryMessage = "Invalid history format (not a valid JSON string)"

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateChat(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
	DefineChatName(ctx *fiber.Ctx) error
	ProcessPrompt(ctx *fiber.Ctx) error
	ProcessFilesAndPrompt(ctx *fiber.Ctx) error
	GetEvents(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/create_chat", c.CreateChat)
	r.Delete("/delete_chat/:conv_id", c.DeleteChat)
	r.Post("/define_chat_name", c.DefineChatName)
	r.Post("/process_prompt", c.ProcessPrompt)
	r.Post("/process_files_and_prompt", c.ProcessFilesAndPrompt)
	r.Get("/conversations/:conv_id/events", c.GetEvents)
}

// chatError maps service errors onto HTTP status codes.
func chatError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrNoFiles),
		errors.Is(err, history.ErrInvalidHistory):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, llm.ErrFilesUnsupported):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, llm.ErrInvalidSeedHistory):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

func convIDParam(ctx *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params("conv_id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "conv_id must be an integer")
	}
	return id, nil
}

func (c *chatController) CreateChat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.CreateSession(ctx.UserContext(), req.ConvId)
	if err != nil {
		return chatError(err)
	}

	msg := "Chat session created successfully"
	if !res.Created {
		msg = "Chat session already exists"
	}
	return ctx.JSON(serverutils.SuccessResponse(msg, res))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	convID, err := convIDParam(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), convID); err != nil {
		return chatError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session deleted successfully", dto.DeleteChatResponse{ConvId: convID}))
}

func (c *chatController) DefineChatName(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	name := c.service.DefineChatName(ctx.UserContext(), req.ConvId)
	return ctx.JSON(serverutils.SuccessResponse("Success define chat name", dto.ResultResponse{Result: name}))
}

func (c *chatController) ProcessPrompt(ctx *fiber.Ctx) error {
	var req dto.PromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	entries, err := history.ParseEntries(req.History)
	if err != nil {
		return chatError(err)
	}

	result, err := c.service.ProcessPrompt(ctx.UserContext(), req.ConvId, req.Prompt, entries)
	if err != nil {
		return chatError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process prompt", dto.ResultResponse{Result: result}))
}

func (c *chatController) ProcessFilesAndPrompt(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	prompt := ctx.FormValue("custom_prompt")
	if prompt == "" {
		return fiber.NewError(fiber.StatusBadRequest, "custom_prompt is required")
	}
	convID, err := strconv.ParseInt(ctx.FormValue("conv_id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "conv_id must be an integer")
	}

	var entries []history.Entry
	if raw := ctx.FormValue("history"); raw != "" {
		entries, err = history.ParseEntriesString(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, invalidHistoryMessage)
		}
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No valid files were uploaded or saved")
	}

	files := make([]dto.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		files = append(files, dto.UploadedFile{Filename: fh.Filename, Content: content})
	}

	result, err := c.service.ProcessFilesAndPrompt(ctx.UserContext(), convID, files, prompt, entries)
	if err != nil {
		return chatError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process files and prompt", dto.ResultResponse{Result: result}))
}

func (c *chatController) GetEvents(ctx *fiber.Ctx) error {
	convID, err := convIDParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetEvents(ctx.UserContext(), convID, strings.ToUpper(ctx.Query("type")), ctx.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat events", res))
}
