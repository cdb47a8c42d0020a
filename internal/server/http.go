package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dwesselviax/EstateLogger/internal/async"
	"github.com/dwesselviax/EstateLogger/internal/common"
)

type httpHandler struct {
	svc    Services
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTP builds the JSON API. Every failure is answered as {"error": msg}
// with the status taken from the error taxonomy.
func NewHTTP(svc Services, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandler{svc: svc, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.handleError
	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			RequestIDHandler: func(c echo.Context, id string) {
				req := c.Request()
				c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), id)))
			},
		}),
		h.logRequests,
		middleware.Recover(),
	)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/auction/:id", h.auction)

	api := e.Group("/api")
	api.POST("/extract-items", h.extractItems)
	api.POST("/enrich-item", h.enrichItem)

	api.POST("/estates", h.createEstate)
	api.GET("/estates", h.listEstates)
	api.GET("/estates/:id", h.getEstate)
	api.PATCH("/estates/:id/status", h.setEstateStatus)
	api.DELETE("/estates/:id", h.deleteEstate)
	api.GET("/estates/:id/items", h.listItems)
	api.POST("/estates/:id/items", h.createItem)
	api.POST("/estates/:id/confirm-all", h.confirmAll)
	api.POST("/estates/:id/enrich", h.startEnrichment)
	api.GET("/estates/:id/enrich", h.enrichmentProgress)
	api.POST("/estates/:id/publish", h.publishEstate)
	api.POST("/estates/:id/sessions", h.startSession)
	api.GET("/estates/:id/export.xlsx", h.exportEstate)
	api.POST("/sessions/:id/complete", h.completeSession)

	api.POST("/items/confirm", h.confirmItems)
	api.POST("/items/delete", h.deleteItems)
	api.GET("/items/:id", h.getItem)
	api.PATCH("/items/:id", h.updateItem)
	api.POST("/items/:id/publish", h.publishItem)
	api.POST("/items/:id/unpublish", h.unpublishItem)
	api.PATCH("/items/:id/enrichment", h.updateEnrichment)
	api.POST("/items/:id/images", h.addImage)

	return e
}

func (h *httpHandler) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		req := c.Request()
		common.LoggerFrom(req.Context(), h.logger).Debug("http.request",
			"method", req.Method,
			"route", c.Path(),
			"status", c.Response().Status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}

func (h *httpHandler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := common.HTTPStatus(err), common.PublicMessage(err)
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code, msg = he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, async.ErrQueueClosed):
		code, msg = http.StatusServiceUnavailable, err.Error()
	}

	logger := common.LoggerFrom(c.Request().Context(), h.logger)
	if code >= http.StatusInternalServerError {
		logger.Error("http.request_failed", "route", c.Path(), "status", code, "error", err)
	} else {
		logger.Info("http.request_rejected", "route", c.Path(), "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorResponse{Error: msg})
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id must be a valid UUID", common.ErrInvalidInput)
	}
	return id, nil
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (r idsRequest) parse() ([]uuid.UUID, error) {
	if err := common.NewValidator().Field("ids", r.IDs, common.Required, common.UUIDs).Error(); err != nil {
		return nil, err
	}
	return common.ParseUUIDs(r.IDs)
}

// queryList accepts both repeated and comma-separated query values.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
