package controller

import (
	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPromptController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Upsert(ctx *fiber.Ctx) error
}

type promptController struct {
	promptService service.IPromptService
	jwtSecret     string
}

func NewPromptController(promptService service.IPromptService, jwtSecret string) IPromptController {
	return &promptController{
		promptService: promptService,
		jwtSecret:     jwtSecret,
	}
}

func (c *promptController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/prompt/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Use(serverutils.AdminOnly(c.jwtSecret))
	h.Get(":client_id", c.Show)
	h.Put(":client_id", c.Upsert)
}

func (c *promptController) Show(ctx *fiber.Ctx) error {
	res, err := c.promptService.Get(ctx.UserContext(), ctx.Params("client_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get prompt", res))
}

func (c *promptController) Upsert(ctx *fiber.Ctx) error {
	var req dto.UpsertPromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.promptService.Upsert(ctx.UserContext(), ctx.Params("client_id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update prompt", res))
}
