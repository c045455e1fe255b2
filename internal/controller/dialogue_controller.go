package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"spatial-search-be/internal/dto"
	"spatial-search-be/internal/pkg/serverutils"
	"spatial-search-be/internal/service"
)

type IDialogueController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	SendTurn(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type dialogueController struct {
	dialogueService service.IDialogueService
}

func NewDialogueController(dialogueService service.IDialogueService) IDialogueController {
	return &dialogueController{
		dialogueService: dialogueService,
	}
}

func (c *dialogueController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/dialogue/v1")
	h.Post("session", c.CreateSession)
	h.Post("data", c.SendTurn)
	h.Get("session/:id/history", c.History)
	h.Post("session/delete", c.Reset)
}

func (c *dialogueController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.dialogueService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *dialogueController) SendTurn(ctx *fiber.Ctx) error {
	var req dto.DialogueTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.dialogueService.SendTurn(ctx.Context(), &req)
	if err != nil {
		if err == service.ErrEmptyQuery {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process turn", res))
}

func (c *dialogueController) History(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.dialogueService.GetHistory(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *dialogueController) Reset(ctx *fiber.Ctx) error {
	var req dto.ResetSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.dialogueService.ResetSession(ctx.Context(), req.SessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}
