// Package repository internal/domain/repository/form_state_repository.go
package repository

import (
	"context"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
)

// FormStateRepository defines the interface for transient per-session form state
type FormStateRepository interface {
	// Find returns the state for a session, or entity.ErrStateNotFound
	Find(ctx context.Context, sessionID string) (*entity.FormState, error)

	// Update atomically applies fn to the session state, creating an empty
	// state first if none exists. If fn returns an error nothing is stored.
	Update(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) (*entity.FormState, error)

	// Delete discards the state of a session once fn accepts it. fn sees the
	// current state inside the same atomic step and vetoes the delete by
	// returning an error. Deleting a missing session is a no-op.
	Delete(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) error
}
