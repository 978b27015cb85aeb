package handler

import (
	"time"

	"github.com/msomdec/recipe-box/internal/domain"
)

// UserDTO is the JSON representation of a user. The password digest never
// leaves the service layer.
type UserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

func toUserDTOs(users []domain.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	return dtos
}

// UserDetailDTO is a user together with its favorite recipes.
type UserDetailDTO struct {
	UserDTO
	Favorites []RecipeDTO `json:"favorites"`
}

func toUserDetailDTO(u *domain.User) UserDetailDTO {
	return UserDetailDTO{
		UserDTO:   toUserDTO(u),
		Favorites: toRecipeDTOs(u.Favorites),
	}
}

// ProfileDTO is the JSON representation of a user profile.
type ProfileDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

func toProfileDTO(p *domain.Profile) ProfileDTO {
	return ProfileDTO{
		ID:        p.ID,
		Name:      p.Name,
		LastName:  p.LastName,
		Email:     p.Email,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// RecipeDTO is the JSON representation of a recipe.
type RecipeDTO struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Country      string   `json:"country"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Clicks       int64    `json:"clicks"`
	Favorites    int64    `json:"favorites"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func toRecipeDTO(r *domain.Recipe) RecipeDTO {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return RecipeDTO{
		ID:           r.ID,
		Title:        r.Title,
		Country:      r.Country,
		Description:  r.Description,
		Ingredients:  ingredients,
		Instructions: r.Instructions,
		Clicks:       r.Clicks,
		Favorites:    r.Favorites,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

func toRecipeDTOs(recipes []domain.Recipe) []RecipeDTO {
	dtos := make([]RecipeDTO, len(recipes))
	for i := range recipes {
		dtos[i] = toRecipeDTO(&recipes[i])
	}
	return dtos
}

// createUserRequest is the body of signup and admin user creation. Role is
// honoured only on the admin path.
type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	LastName string `json:"lastname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=50,strongpassword"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN REGULAR"`
}

func (req createUserRequest) toNewUser() domain.NewUser {
	return domain.NewUser{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=50"`
}

type updateUserRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2"`
	LastName    *string `json:"lastname"`
	Email       *string `json:"email" validate:"omitempty,email"`
	NewPassword *string `json:"newPassword" validate:"omitempty,min=8,max=50,strongpassword"`
	OldPassword *string `json:"oldPassword" validate:"omitempty,max=50"`
}

func (req updateUserRequest) toPatch() domain.UserPatch {
	return domain.UserPatch{
		Name:        req.Name,
		LastName:    req.LastName,
		Email:       req.Email,
		NewPassword: req.NewPassword,
		OldPassword: req.OldPassword,
	}
}

type adminUpdateUserRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2"`
	LastName    *string `json:"lastname"`
	Email       *string `json:"email" validate:"omitempty,email"`
	NewPassword *string `json:"newPassword" validate:"omitempty,min=8,max=50,strongpassword"`
	Role        *string `json:"role" validate:"omitempty,oneof=ADMIN REGULAR"`
}

func (req adminUpdateUserRequest) toPatch() domain.AdminUserPatch {
	patch := domain.AdminUserPatch{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.NewPassword,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	return patch
}

type createRecipeRequest struct {
	Title        string   `json:"title" validate:"required"`
	Country      string   `json:"country" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions string   `json:"instructions" validate:"required"`
}

func (req createRecipeRequest) toNewRecipe() domain.NewRecipe {
	return domain.NewRecipe{
		Title:        req.Title,
		Country:      req.Country,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
	}
}

type updateRecipeRequest struct {
	Title        *string   `json:"title"`
	Country      *string   `json:"country"`
	Description  *string   `json:"description"`
	Ingredients  *[]string `json:"ingredients" validate:"omitempty,min=1,dive,required"`
	Instructions *string   `json:"instructions"`
}

func (req updateRecipeRequest) toPatch() domain.RecipePatch {
	return domain.RecipePatch{
		Title:        req.Title,
		Country:      req.Country,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
	}
}

type recoverPasswordRequest struct {
	To string `json:"to" validate:"required,email"`
}

type newPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8,max=50,strongpassword"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}
