package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"saldo/internal/domain/category"
	"saldo/internal/shared/optional"
)

type CategoryHandler struct {
	categoryService *category.Service
	logger          zerolog.Logger
}

func NewCategoryHandler(categoryService *category.Service, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, logger: logger}
}

type CreateCategoryRequest struct {
	Name  string        `json:"name"`
	Kind  category.Kind `json:"kind"`
	Color string        `json:"color"`
}

// UpdateCategoryRequest only touches the fields present in the body.
type UpdateCategoryRequest struct {
	Name  optional.Value[string]        `json:"name"`
	Kind  optional.Value[category.Kind] `json:"kind"`
	Color optional.Value[string]        `json:"color"`
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.categoryService.CreateCategory(r.Context(), category.CreateCategoryParams{
		Name:  req.Name,
		Kind:  req.Kind,
		Color: req.Color,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleListCategories lists every category, or only one kind when the
// kind query parameter is set.
func (h *CategoryHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		categories []*category.Category
		err        error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		categories, err = h.categoryService.ListCategoriesByKind(r.Context(), category.Kind(kind))
	} else {
		categories, err = h.categoryService.ListCategories(r.Context())
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []*category.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req UpdateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.categoryService.UpdateCategory(r.Context(), id, category.UpdateCategoryParams{
		Name:  req.Name,
		Kind:  req.Kind,
		Color: req.Color,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDeleteCategory removes a category. Transactions filed under it are
// left as they are.
func (h *CategoryHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.categoryService.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
