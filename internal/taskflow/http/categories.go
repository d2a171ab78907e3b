package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
)

type CategoryHandler struct {
	CategoryService *service.CategoryService
}

func categoryInput(r *http.Request) service.CategoryInput {
	return service.CategoryInput{
		Name:  r.PostFormValue("name"),
		Color: r.PostFormValue("color"),
	}
}

// Index lists the categories with their task counts.
func (h *CategoryHandler) Index(w http.ResponseWriter, r *http.Request) {
	cats, err := h.CategoryService.List(r.Context(), currentUser(r).ID)
	if err != nil {
		serverError(w, r, err, "")
		return
	}
	render(w, r, http.StatusOK, "categories/index", "Categories", map[string]any{
		"categories": newCategoryStatsViews(cats),
		"colors":     domain.CategoryColors,
	})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	c, err := h.CategoryService.Create(r.Context(), currentUser(r).ID, categoryInput(r))
	if err != nil {
		handleError(w, r, err, "/categories")
		return
	}
	succeed(w, r, http.StatusCreated, "Category created successfully.", "/categories", newCategoryView(c))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	c, err := h.CategoryService.Update(r.Context(), currentUser(r).ID, mux.Vars(r)["id"], categoryInput(r))
	if err != nil {
		handleError(w, r, err, "/categories")
		return
	}
	succeed(w, r, http.StatusOK, "Category updated successfully.", "/categories", newCategoryView(c))
}

// Delete removes the category; its tasks become uncategorised.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.CategoryService.Delete(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err, "/categories")
		return
	}
	succeed(w, r, http.StatusOK, "Category deleted successfully.", "/categories", nil)
}
