package service

import (
	"errors"
	"log/slog"

	"github.com/msomdec/recipe-box/internal/domain"
)

var errUnavailable = domain.NewError(domain.ErrUnavailable, "Service temporarily unavailable")

// classify lets known domain errors through and logs anything else,
// replacing it with a generic unavailable error.
func classify(logger *slog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsClassified(err) {
		return err
	}
	logger.Error(op+" failed", "error", err)
	return errUnavailable
}

// notFound attaches msg to a bare ErrNotFound coming from a repository.
func notFound(err error, msg string) error {
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, ok := domain.PublicMessage(err); ok {
		return err
	}
	return domain.NewError(domain.ErrNotFound, msg)
}

func invalid(msg string) error {
	return domain.NewError(domain.ErrInvalidInput, msg)
}
