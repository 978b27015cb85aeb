package handler

import (
	"net/http"

	"github.com/msomdec/recipe-box/internal/service"
)

// RecipeHandler serves the recipe catalogue. The admin routes reuse it.
type RecipeHandler struct {
	recipes *service.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// HandleList returns one page of recipes, or 204 when there are none.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, ok := pageQuery(w, r)
	if !ok {
		return
	}
	recipes, err := h.recipes.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTOs(recipes))
}

// HandleTop returns the most popular recipes.
func (h *RecipeHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.TopThree(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTOs(recipes))
}

// HandleGet returns a single recipe and counts the visit.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(recipe))
}

// HandleCreate adds a recipe.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	recipe, err := h.recipes.Create(r.Context(), req.toNewRecipe())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeDTO(recipe))
}

// HandleUpdate applies a partial update to a recipe.
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRecipeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	recipe, err := h.recipes.Update(r.Context(), id, req.toPatch())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(recipe))
}

// HandleDelete removes a recipe.
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.recipes.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Recipe deleted"})
}
