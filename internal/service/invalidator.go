package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/events"
)

// Invalidator drops the cache entries derived from an entity when the event
// bus reports a write to it.
type Invalidator struct {
	cache  cache.Cache
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator for c.
func NewInvalidator(c cache.Cache) *Invalidator {
	return &Invalidator{cache: c, logger: slog.Default().With("component", "invalidator")}
}

// Register subscribes the invalidation handlers to every entity topic.
func (i *Invalidator) Register(ctx context.Context, sub events.Subscriber) error {
	handlers := map[string]events.Handler{
		events.TopicRecipeCreated: i.RecipeCreated,
		events.TopicRecipeMutated: i.RecipeMutated,
		events.TopicRecipeClicked: i.RecipeClicked,
		events.TopicUserCreated:   i.UserCreated,
		events.TopicUserMutated:   i.UserMutated,
	}
	for topic, h := range handlers {
		if err := sub.Subscribe(ctx, topic, h); err != nil {
			return fmt.Errorf("register invalidation for %s: %w", topic, err)
		}
	}
	return nil
}

// RecipeCreated drops the aggregates a new recipe can appear in.
func (i *Invalidator) RecipeCreated(ctx context.Context, _ events.Message) error {
	return i.drop(ctx,
		nil,
		[]string{cache.RecipeListPrefix, cache.RecipeIngredientsPrefix, cache.RecipeTopKey},
	)
}

// RecipeMutated drops the recipe's own entry, every recipe aggregate, and
// the user entries that embed recipe snapshots.
func (i *Invalidator) RecipeMutated(ctx context.Context, msg events.Message) error {
	var ev events.RecipeEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode recipe event: %w", err)
	}
	return i.drop(ctx,
		[]string{cache.RecipeKey(ev.ID), cache.RecipeTopKey},
		[]string{
			cache.RecipeListPrefix,
			cache.RecipeIngredientsPrefix,
			cache.UserByIDPrefix,
			cache.UserFavoritesPrefix,
		},
	)
}

// RecipeClicked drops every entry that embeds the recipe's click counter.
// The recipe's own entry stays: reads overlay the persisted count on it.
func (i *Invalidator) RecipeClicked(ctx context.Context, _ events.Message) error {
	return i.drop(ctx,
		[]string{cache.RecipeTopKey},
		[]string{
			cache.RecipeListPrefix,
			cache.RecipeIngredientsPrefix,
			cache.UserByIDPrefix,
			cache.UserFavoritesPrefix,
		},
	)
}

// UserCreated drops the user list.
func (i *Invalidator) UserCreated(ctx context.Context, _ events.Message) error {
	return i.drop(ctx, nil, []string{cache.UserListPrefix})
}

// UserMutated drops the user list and every entry keyed by the user's id.
func (i *Invalidator) UserMutated(ctx context.Context, msg events.Message) error {
	var ev events.UserEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode user event: %w", err)
	}
	return i.drop(ctx,
		[]string{cache.UserKey(ev.ID), cache.UserProfileKey(ev.ID), cache.UserFavoritesKey(ev.ID)},
		[]string{cache.UserListPrefix},
	)
}

// drop attempts every deletion and reports the failures together.
func (i *Invalidator) drop(ctx context.Context, keys, prefixes []string) error {
	var errs []error
	for _, k := range keys {
		if err := i.cache.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	for _, p := range prefixes {
		if err := i.cache.DeleteByPrefix(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("delete prefix %s: %w", p, err))
		}
	}
	if len(errs) > 0 {
		i.logger.Warn("cache invalidation incomplete", "failures", len(errs))
	}
	return errors.Join(errs...)
}
