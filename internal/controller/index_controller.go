package controller

import (
	"github.com/gofiber/fiber/v2"

	"spatial-search-be/internal/dto"
	"spatial-search-be/internal/pkg/serverutils"
	"spatial-search-be/internal/service"
)

type IIndexController interface {
	RegisterRoutes(r fiber.Router, apiKeyMiddleware fiber.Handler)
	Harvest(ctx *fiber.Ctx) error
	IndexGeoJSON(ctx *fiber.Ctx) error
	RetrieveGeoJSON(ctx *fiber.Ctx) error
	ListCollections(ctx *fiber.Ctx) error
	ShowDocument(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error
	ClearCollection(ctx *fiber.Ctx) error
	RebuildRoutes(ctx *fiber.Ctx) error
}

type indexController struct {
	indexService service.IIndexService
}

func NewIndexController(indexService service.IIndexService) IIndexController {
	return &indexController{
		indexService: indexService,
	}
}

func (c *indexController) RegisterRoutes(r fiber.Router, apiKeyMiddleware fiber.Handler) {
	h := r.Group("/index/v1")
	h.Use(apiKeyMiddleware)
	h.Post("fetch-documents", c.Harvest)
	h.Post("geojson", c.IndexGeoJSON)
	h.Get("geojson/retrieve", c.RetrieveGeoJSON)
	h.Post("rebuild-routes", c.RebuildRoutes)
	h.Get("collections", c.ListCollections)
	h.Get(":collection/doc/:docId", c.ShowDocument)
	h.Delete(":collection/doc/:docId", c.DeleteDocument)
	h.Delete(":collection", c.ClearCollection)
}

func (c *indexController) Harvest(ctx *fiber.Ctx) error {
	var req dto.IndexCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.indexService.HarvestPyGeoAPI(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success queue harvest", res))
}

func (c *indexController) IndexGeoJSON(ctx *fiber.Ctx) error {
	var req dto.IndexGeoJSONRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.indexService.IndexGeoJSON(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success index GeoJSON collection", res))
}

func (c *indexController) RetrieveGeoJSON(ctx *fiber.Ctx) error {
	collection := ctx.Query("collection")
	query := ctx.Query("query")
	if collection == "" || query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "collection and query parameters are required")
	}

	res, err := c.indexService.RetrieveGeoJSON(ctx.Context(), collection, query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success retrieve features", res))
}

func (c *indexController) ListCollections(ctx *fiber.Ctx) error {
	res, err := c.indexService.ListCollections(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list collections", res))
}

func (c *indexController) ShowDocument(ctx *fiber.Ctx) error {
	res, err := c.indexService.GetDocument(ctx.Context(), ctx.Params("collection"), ctx.Params("docId"))
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get document", res))
}

func (c *indexController) DeleteDocument(ctx *fiber.Ctx) error {
	err := c.indexService.DeleteDocument(ctx.Context(), ctx.Params("collection"), ctx.Params("docId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete document", nil))
}

func (c *indexController) ClearCollection(ctx *fiber.Ctx) error {
	res, err := c.indexService.ClearCollection(ctx.Context(), ctx.Params("collection"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success clear collection", res))
}

func (c *indexController) RebuildRoutes(ctx *fiber.Ctx) error {
	res, err := c.indexService.RebuildRoutes(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rebuild routes", res))
}
