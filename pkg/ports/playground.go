package ports

import (
	"context"

	"github.com/aretw0/playground/pkg/domain"
)

// PlaygroundStore defines the interface for persisting playgrounds.
type PlaygroundStore interface {
	// Save persists the playground under its ID, replacing any previous version.
	Save(ctx context.Context, p *domain.Playground) error

	// Load retrieves a playground.
	// Returns domain.ErrPlaygroundNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Playground, error)

	// Delete removes a playground. Deleting a missing playground is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored playgrounds.
	List(ctx context.Context) ([]string, error)
}
