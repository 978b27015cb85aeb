package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/msomdec/recipe-box/internal/domain"
)

const purposeReset = "password-reset"

var errInvalidToken = domain.NewError(domain.ErrUnauthorized, "Invalid token")

// Claims are the identity carried by an access token.
type Claims struct {
	UserID int64
	Role   domain.Role
	Email  string
}

// ResetClaims are the contents of a password reset token.
type ResetClaims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// AuthService handles sign-up, sign-in, and JWT token operations.
type AuthService struct {
	users     *UserService
	jwtSecret []byte
	tokenTTL  time.Duration
	resetTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *UserService, jwtSecret string, tokenTTL, resetTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		resetTTL:  resetTTL,
	}
}

// SignUp creates a REGULAR account.
func (s *AuthService) SignUp(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	return s.users.Create(ctx, in)
}

// SignIn verifies credentials and returns a signed access token along with
// the user.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"role":     string(user.Role),
		"email":    user.Email,
		"name":     user.Name,
		"lastname": user.LastName,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}
	token, err := s.sign(claims)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}
	return token, user, nil
}

// ValidateToken parses and validates an access token.
func (s *AuthService) ValidateToken(tokenString string) (Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if _, ok := claims["purpose"]; ok {
		// Reset tokens never authenticate requests.
		return Claims{}, errInvalidToken
	}

	userID, err := subject(claims)
	if err != nil {
		return Claims{}, err
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	if !domain.Role(role).Valid() {
		return Claims{}, errInvalidToken
	}
	return Claims{UserID: userID, Role: domain.Role(role), Email: email}, nil
}

// IssueResetToken signs a single-purpose token for resetting the password
// of userID.
func (s *AuthService) IssueResetToken(userID int64) (string, ResetClaims, error) {
	now := time.Now()
	rc := ResetClaims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.resetTTL),
	}
	token, err := s.sign(jwt.MapClaims{
		"sub":     strconv.FormatInt(userID, 10),
		"purpose": purposeReset,
		"jti":     rc.TokenID,
		"iat":     now.Unix(),
		"exp":     rc.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", ResetClaims{}, fmt.Errorf("generate reset jwt: %w", err)
	}
	return token, rc, nil
}

// ParseResetToken validates a reset token and returns its claims.
func (s *AuthService) ParseResetToken(tokenString string) (ResetClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return ResetClaims{}, err
	}
	if purpose, _ := claims["purpose"].(string); purpose != purposeReset {
		return ResetClaims{}, errInvalidToken
	}
	userID, err := subject(claims)
	if err != nil {
		return ResetClaims{}, err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ResetClaims{}, errInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ResetClaims{}, errInvalidToken
	}
	return ResetClaims{UserID: userID, TokenID: jti, ExpiresAt: exp.Time}, nil
}

func (s *AuthService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (int64, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, errInvalidToken
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, errInvalidToken
	}
	return id, nil
}
