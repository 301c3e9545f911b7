package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Rrens/greenbite/internal/api/response"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/go-chi/chi/v5"
)

// RecipeSource suggests meals
type RecipeSource interface {
	RandomN(ctx context.Context, n int) ([]domain.Recipe, error)
	Lookup(ctx context.Context, id string) (*domain.Recipe, error)
}

type RecipeHandler struct {
	recipes RecipeSource
}

func NewRecipeHandler(recipes RecipeSource) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// Random returns ?count= random recipes (default 1)
func (h *RecipeHandler) Random(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "count must be a positive whole number")
			return
		}
		count = n
	}

	recipes, err := h.recipes.RandomN(r.Context(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"recipes": recipes})
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Lookup(r.Context(), chi.URLParam(r, "recipeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, recipe)
}
