// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"feedqa/internal/models"
)

// ErrFeedNotFound is returned when no feed has the requested ID.
var ErrFeedNotFound = errors.New("feed not found")

// Repository defines the interface for persisting subscribed feeds.
type Repository interface {
	// SaveFeed creates or replaces a feed record, articles included.
	SaveFeed(ctx context.Context, feed *models.Feed) error

	// ListFeeds returns every feed in the order they were added.
	ListFeeds(ctx context.Context) ([]*models.Feed, error)

	// GetFeed retrieves a feed by ID.
	GetFeed(ctx context.Context, id string) (*models.Feed, error)

	// DeleteFeed removes a feed by ID.
	DeleteFeed(ctx context.Context, id string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
