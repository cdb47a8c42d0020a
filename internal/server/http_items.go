package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

type extractRequest struct {
	Transcript string  `json:"transcript"`
	EstateID   string  `json:"estateId"`
	SessionID  *string `json:"sessionId"`
}

type extractResponse struct {
	Items []*entity.Item `json:"items"`
}

type enrichRequest struct {
	ItemID string `json:"itemId"`
}

type enrichResponse struct {
	Enrichment *entity.Enrichment `json:"enrichment"`
}

// extractItems turns a transcript chunk into captured items.
func (h *httpHandler) extractItems(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return c.JSON(http.StatusOK, extractResponse{Items: []*entity.Item{}})
	}
	if err := common.NewValidator().
		Field("estateId", req.EstateID, common.Required, common.UUID).
		Field("sessionId", req.SessionID, common.UUID).
		Error(); err != nil {
		return err
	}

	r := extraction.Request{Transcript: req.Transcript, EstateID: uuid.MustParse(req.EstateID)}
	if req.SessionID != nil && *req.SessionID != "" {
		sid := uuid.MustParse(*req.SessionID)
		r.SessionID = &sid
	}
	items, err := h.svc.Extraction.Extract(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, extractResponse{Items: items})
}

func (h *httpHandler) enrichItem(c echo.Context) error {
	var req enrichRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := common.NewValidator().Field("itemId", req.ItemID, common.Required, common.UUID).Error(); err != nil {
		return err
	}
	e, err := h.svc.Enrichment.EnrichItem(c.Request().Context(), uuid.MustParse(req.ItemID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enrichResponse{Enrichment: e})
}

func (h *httpHandler) getItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	it, err := h.svc.Items.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *httpHandler) updateItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var f item.ItemFields
	if err := c.Bind(&f); err != nil {
		return err
	}
	it, err := h.svc.Items.UpdateItem(c.Request().Context(), id, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *httpHandler) confirmItems(c echo.Context) error {
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ids, err := req.parse()
	if err != nil {
		return err
	}
	n, err := h.svc.Gate.ConfirmItems(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

func (h *httpHandler) deleteItems(c echo.Context) error {
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ids, err := req.parse()
	if err != nil {
		return err
	}
	n, err := h.svc.Gate.DeleteItems(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

func (h *httpHandler) publishItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	it, err := h.svc.Gate.PublishItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *httpHandler) unpublishItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	it, err := h.svc.Gate.UnpublishItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *httpHandler) updateEnrichment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var f item.EnrichmentFields
	if err := c.Bind(&f); err != nil {
		return err
	}
	e, err := h.svc.Items.UpdateEnrichment(c.Request().Context(), id, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *httpHandler) addImage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	img, err := h.svc.Items.AddImage(c.Request().Context(), id, req.URL, req.Type)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, img)
}
