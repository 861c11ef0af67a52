package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/webmemo/schemad"
	"github.com/webmemo/schemad/internal/domain"
	"github.com/webmemo/schemad/internal/present/rest/presenter"
	"github.com/webmemo/schemad/internal/service"
	"github.com/webmemo/schemad/internal/usecase"
)

type Handler struct {
	schema     *usecase.SchemaUsecase
	aggregator *usecase.AggregatorUsecase
	signal     *service.SignalService
	cache      service.PageCache
	cacheTTL   time.Duration
}

func NewHandler(
	schema *usecase.SchemaUsecase,
	aggregator *usecase.AggregatorUsecase,
	signal *service.SignalService,
	cache service.PageCache,
	cacheTTL time.Duration,
) *Handler {
	return &Handler{
		schema:     schema,
		aggregator: aggregator,
		signal:     signal,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, admin echo.MiddlewareFunc) {
	g := e.Group("/api/v1")

	s := g.Group("/schemas", admin)
	s.GET("", h.handleList)
	s.GET("/:id", h.handleGet)
	s.POST("", h.handleCreate)
	s.PUT("/:id", h.handleUpdate)
	s.DELETE("/:id", h.handleDelete)
	s.DELETE("", h.handleDeleteBySubject)
	s.POST("/bulk", h.handleBulk)

	g.GET("/render", h.handleRender)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleList(c echo.Context) error {
	ctx := c.Request().Context()

	var filter usecase.ListFilter

	subjectIDStr := c.QueryParam("subject_id")
	if subjectIDStr != "" {
		subjectID, err := strconv.ParseInt(subjectIDStr, 10, 64)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid subject_id parameter")
		}
		if c.QueryParam("subject_kind") == "" {
			return presenter.BadRequest(c, domain.MissingFieldError{Field: "subjectKind"})
		}
		filter.SubjectID = &subjectID
		filter.SubjectKind = c.QueryParam("subject_kind")
	}
	filter.SchemaKind = c.QueryParam("schema_kind")

	records, err := h.schema.List(ctx, filter)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, toSchemas(records))
}

func (h *Handler) handleGet(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	record, err := h.schema.Get(ctx, id)
	if err != nil {
		return h.writeError(c, err)
	}
	return presenter.OK(c, toSchema(record))
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var req schemad.UpsertRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	id, err := h.schema.Upsert(ctx, req)
	if err != nil {
		return h.writeError(c, err)
	}
	return presenter.OK(c, schemad.UpsertResponse{ID: id})
}

func (h *Handler) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	var req schemad.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.schema.UpdateByID(ctx, id, req.Payload); err != nil {
		return h.writeError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	if err := h.schema.DeleteByID(ctx, id); err != nil {
		return h.writeError(c, err)
	}
	return presenter.OK(c, echo.Map{"deleted": true})
}

func (h *Handler) handleDeleteBySubject(c echo.Context) error {
	ctx := c.Request().Context()

	subjectIDStr := c.QueryParam("subject_id")
	subjectKind := c.QueryParam("subject_kind")
	if subjectIDStr == "" {
		return presenter.BadRequest(c, domain.MissingFieldError{Field: "subjectId"})
	}
	if subjectKind == "" {
		return presenter.BadRequest(c, domain.MissingFieldError{Field: "subjectKind"})
	}
	subjectID, err := strconv.ParseInt(subjectIDStr, 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid subject_id parameter")
	}

	deleted, err := h.schema.DeleteBySubject(ctx, subjectID, subjectKind)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, schemad.DeleteResponse{Deleted: deleted})
}

// handleBulk never fails as a whole: the response is always 200 and callers
// inspect the report body to detect partial failure.
func (h *Handler) handleBulk(c echo.Context) error {
	ctx := c.Request().Context()

	var req schemad.BulkRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	report := h.schema.BulkUpsert(ctx, req.Schemas)
	return presenter.OK(c, report)
}

func (h *Handler) handleRender(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := parsePageContext(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	cacheKey := fmt.Sprintf("render:%s:%s:%d", page.Kind, page.SubjectKind, page.SubjectID)
	if h.cache != nil {
		if cached, ok := h.cache.Get(ctx, cacheKey); ok {
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	payloads, err := h.aggregator.SchemasFor(ctx, page)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	body, err := json.Marshal(payloads)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	if h.cache != nil {
		h.cache.Set(ctx, cacheKey, body, h.cacheTTL)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func parsePageContext(c echo.Context) (domain.PageContext, error) {
	kind := c.QueryParam("kind")
	switch kind {
	case "", string(domain.PageKindGlobal):
		return domain.GlobalPage(), nil
	case string(domain.PageKindObject):
		subjectIDStr := c.QueryParam("subject_id")
		subjectKind := c.QueryParam("subject_kind")
		if subjectIDStr == "" {
			return domain.PageContext{}, domain.MissingFieldError{Field: "subjectId"}
		}
		if subjectKind == "" {
			return domain.PageContext{}, domain.MissingFieldError{Field: "subjectKind"}
		}
		subjectID, err := strconv.ParseInt(subjectIDStr, 10, 64)
		if err != nil {
			return domain.PageContext{}, domain.InvalidPayloadError{Detail: "invalid subject_id parameter"}
		}
		return domain.ObjectPage(subjectID, subjectKind), nil
	case string(domain.PageKindAuthor):
		subjectIDStr := c.QueryParam("subject_id")
		if subjectIDStr == "" {
			return domain.PageContext{}, domain.MissingFieldError{Field: "subjectId"}
		}
		userID, err := strconv.ParseInt(subjectIDStr, 10, 64)
		if err != nil {
			return domain.PageContext{}, domain.InvalidPayloadError{Detail: "invalid subject_id parameter"}
		}
		return domain.AuthorPage(userID), nil
	default:
		return domain.PageContext{}, domain.InvalidPayloadError{Detail: "unsupported page kind"}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type  string   `json:"type"`
	Kinds []string `json:"kinds"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.NotFound(c, "realtime feed not enabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"failed to upgrade websocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan schemad.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "websocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Kinds
				slog.DebugContext(
					ctx, fmt.Sprintf("socket subscribe: %s", req.Kinds),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidPayload):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	default:
		return presenter.InternalError(c, err)
	}
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func toSchema(record domain.SchemaRecord) schemad.Schema {
	return schemad.Schema{
		ID:          record.ID,
		SubjectID:   record.SubjectID,
		SubjectKind: record.SubjectKind,
		SchemaKind:  record.SchemaKind,
		Payload:     record.Payload,
		UpdatedAt:   record.UpdatedAt,
	}
}

func toSchemas(records []domain.SchemaRecord) []schemad.Schema {
	out := make([]schemad.Schema, 0, len(records))
	for _, record := range records {
		out = append(out, toSchema(record))
	}
	return out
}
