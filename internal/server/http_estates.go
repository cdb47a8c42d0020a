package server

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/async"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/services/estate"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type estatesResponse struct {
	Estates []*entity.EstateSummary `json:"estates"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (h *httpHandler) createEstate(c echo.Context) error {
	var req estate.CreateEstateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	e, err := h.svc.Estates.CreateEstate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *httpHandler) listEstates(c echo.Context) error {
	list, err := h.svc.Estates.ListEstates(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, estatesResponse{Estates: list})
}

func (h *httpHandler) getEstate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Estates.GetEstate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *httpHandler) setEstateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := common.NewValidator().Field("status", req.Status, common.Required).Error(); err != nil {
		return err
	}
	e, err := h.svc.Gate.SetEstateStatus(c.Request().Context(), id, constants.EstateStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *httpHandler) deleteEstate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Estates.DeleteEstate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *httpHandler) listItems(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Items.ListItems(c.Request().Context(), id, item.ListQuery{
		Statuses: queryList(c, "status"),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("q"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *httpHandler) createItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var f item.ItemFields
	if err := c.Bind(&f); err != nil {
		return err
	}
	it, err := h.svc.Items.CreateManualItem(c.Request().Context(), id, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *httpHandler) confirmAll(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Gate.ConfirmAllCaptured(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// startEnrichment queues a background batch and answers 202 with its progress.
func (h *httpHandler) startEnrichment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Force bool `json:"force"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.Queue.Enqueue(ctx, async.Job{
		EstateID: id,
		Force:    req.Force,
		TraceID:  common.RequestIDFromContext(ctx),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, p)
}

func (h *httpHandler) enrichmentProgress(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, ok := h.svc.Queue.Progress(id)
	if !ok {
		return common.NotFound("enrichment batch for estate", id)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *httpHandler) publishEstate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Gate.PublishEstate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

func (h *httpHandler) startSession(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.Estates.StartSession(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *httpHandler) completeSession(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	sess, err := h.svc.Estates.CompleteSession(c.Request().Context(), id, req.Transcript)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *httpHandler) exportEstate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	data, name, err := h.svc.Export.EstateCatalogXLSX(c.Request().Context(), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func (h *httpHandler) auction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Gate.Auction(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
