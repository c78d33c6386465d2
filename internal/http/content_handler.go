package httpapi

import (
	"database/sql"
	"errors"
	"net/http"

	"kidneyguard-data/internal/repository"

	"go.uber.org/zap"
)

// ContentHandler 教育内容接口
type ContentHandler struct {
	content repository.ContentRepository
	logger  *zap.Logger
}

func NewContentHandler(content repository.ContentRepository, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{content: content, logger: logger}
}

// GET /content/api/v1/modules
func (h *ContentHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.content.ListModules(r.Context())
	if err != nil {
		h.logger.Error("content list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load content"))
		return
	}

	items := make([]map[string]any, 0, len(modules))
	for _, m := range modules {
		items = append(items, map[string]any{
			"slug":    m.Slug,
			"title":   m.Title,
			"topic":   m.Topic,
			"summary": m.Summary,
		})
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// GET /content/api/v1/modules/{slug}
func (h *ContentHandler) GetModule(w http.ResponseWriter, r *http.Request, slug string) {
	m, err := h.content.GetModule(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("module not found"))
			return
		}
		h.logger.Error("content load failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load module"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"slug":    m.Slug,
		"title":   m.Title,
		"topic":   m.Topic,
		"summary": m.Summary,
		"body":    m.Body,
	}))
}
