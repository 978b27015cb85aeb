package handler

import (
	"net/http"

	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/service"
)

// UserHandler serves the self-service routes of the authenticated user.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// currentUser returns the id of the authenticated caller. RequireAuth
// guarantees the claims are present on these routes.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return 0, false
	}
	return claims.UserID, true
}

// HandleProfile returns the caller's profile.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// HandleUpdate applies a partial update to the caller's account.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	user, err := h.users.Update(r.Context(), userID, req.toPatch())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleDelete removes the caller's account.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.users.DeleteSelf(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted"})
}

// HandleFavorites lists the caller's favorite recipes.
func (h *UserHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	favorites, err := h.users.GetFavorites(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTOs(favorites))
}

// HandleFindByIngredients searches recipes containing every listed
// ingredient.
// GET /users/recipes/findByIngredients?ingredients=a,b&orderBy=default|country
func (h *UserHandler) HandleFindByIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients := listQuery(r, "ingredients")
	if len(ingredients) == 0 {
		writeError(w, http.StatusBadRequest, "ingredients should not be empty")
		return
	}
	order := domain.IngredientOrder(r.URL.Query().Get("orderBy"))

	recipes, err := h.users.FindByIngredients(r.Context(), ingredients, order)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTOs(recipes))
}

// HandleAddFavorite adds a recipe to the caller's favorites and returns the
// caller with the updated favorites.
func (h *UserHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	recipeID, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.AddToFavorites(r.Context(), userID, recipeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDetailDTO(user))
}

// HandleRemoveFavorite drops a recipe from the caller's favorites.
func (h *UserHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	recipeID, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.RemoveFromFavorites(r.Context(), userID, recipeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailDTO(user))
}
