package controller

import (
	"encoding/json"
	"io"

	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/pkg/serverutils"
	"knowledge-base-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	UpdateVisibility(ctx *fiber.Ctx) error
	Requeue(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestionService service.IIngestionService
}

func NewDocumentController(ingestionService service.IIngestionService) IDocumentController {
	return &documentController{
		ingestionService: ingestionService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Upload)
	h.Get(":id", c.Show)
	h.Patch(":id/visibility", c.UpdateVisibility)
	h.Post(":id/requeue", c.Requeue)
	h.Delete(":id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	identity := serverutils.IdentityFromCtx(ctx)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Missing file"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Unreadable file"))
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Unreadable file"))
	}
	// Zero-byte files are accepted here and settled by the pipeline, which
	// fails them as unextractable on a real document row.
	req := dto.UploadDocumentRequest{
		Filename:    fileHeader.Filename,
		MimeType:    ctx.FormValue("mime_type", fileHeader.Header.Get("Content-Type")),
		CompanyWide: ctx.FormValue("company_wide") == "true",
		Priority:    ctx.FormValue("priority"),
	}
	if raw := ctx.FormValue("allowed_departments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.AllowedDepartments); err != nil {
			return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "allowed_departments must be a JSON string array"))
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ingestionService.Upload(ctx.Context(), identity, &req, data)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document accepted", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	identity := serverutils.IdentityFromCtx(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	res, err := c.ingestionService.Show(ctx.Context(), identity, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get document", res))
}

func (c *documentController) UpdateVisibility(ctx *fiber.Ctx) error {
	identity := serverutils.IdentityFromCtx(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	var req dto.UpdateVisibilityRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.ingestionService.UpdateVisibility(ctx.Context(), identity, id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update visibility", nil))
}

func (c *documentController) Requeue(ctx *fiber.Ctx) error {
	identity := serverutils.IdentityFromCtx(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	res, err := c.ingestionService.Requeue(ctx.Context(), identity, id)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document requeued", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	identity := serverutils.IdentityFromCtx(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(400).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	if err := c.ingestionService.Delete(ctx.Context(), identity, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete document", nil))
}
