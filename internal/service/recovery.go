package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/mail"
)

// RecoveryService resets forgotten passwords through a mailed link.
type RecoveryService struct {
	users    *UserService
	auth     *AuthService
	mailer   mail.Sender
	limiter  *KeyedLimiter
	resetURL string
	logger   *slog.Logger

	mu   sync.Mutex
	used map[string]time.Time // token id -> expiry
}

// NewRecoveryService creates a RecoveryService. Reset links are resetURL
// followed by the token.
func NewRecoveryService(users *UserService, auth *AuthService, mailer mail.Sender, limiter *KeyedLimiter, resetURL string) *RecoveryService {
	return &RecoveryService{
		users:    users,
		auth:     auth,
		mailer:   mailer,
		limiter:  limiter,
		resetURL: strings.TrimRight(resetURL, "/"),
		logger:   slog.Default().With("component", "recovery"),
		used:     make(map[string]time.Time),
	}
}

// RequestReset mails a reset link to the account registered under email.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("email is required")
	}
	if !s.limiter.Allow(email) {
		return domain.NewError(domain.ErrRateLimited, "Too many recovery requests, try again later")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, claims, err := s.auth.IssueResetToken(user.ID)
	if err != nil {
		return classify(s.logger, "issue reset token", err)
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Password recovery",
		Text: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s/%s\n",
			user.Name, claims.ExpiresAt.UTC().Format(time.RFC1123), s.resetURL, token),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return classify(s.logger, "send recovery mail", err)
	}
	s.logger.Info("recovery mail sent", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password using a token from RequestReset. Each
// token works once.
func (s *RecoveryService) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.auth.ParseResetToken(token)
	if err != nil {
		return err
	}
	if !s.claim(claims) {
		return errInvalidToken
	}

	if err := s.users.SetPassword(ctx, claims.UserID, password); err != nil {
		s.release(claims.TokenID)
		return err
	}
	return nil
}

// claim marks the token as used, reporting false if it already was.
func (s *RecoveryService) claim(c ResetClaims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.used {
		if exp.Before(now) {
			delete(s.used, id)
		}
	}
	if _, ok := s.used[c.TokenID]; ok {
		return false
	}
	s.used[c.TokenID] = c.ExpiresAt
	return true
}

func (s *RecoveryService) release(tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, tokenID)
}
