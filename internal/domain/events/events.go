package events

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no event matches the given id.
	ErrNotFound = errors.New("event not found")
	// ErrShortenerFailed marks a link-shortening failure during
	// creation. Nothing is persisted when this is returned.
	ErrShortenerFailed = errors.New("link shortener failed")
)

// Event is the primary calendar entity.
//
// ID and ShortLink are assigned once at creation and never change.
// Verified only ever transitions false -> true. OrganizerContact is
// sensitive and must be stripped from responses to standard callers.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	OrganizerContact *string   `json:"organizer_contact,omitempty"`
	Slug             string    `json:"slug"`
	ShortLink        string    `json:"short_link,omitempty"`
	Verified         bool      `json:"verified"`
	Tags             []string  `json:"tags,omitempty"`
	VenueID          *string   `json:"venue_id,omitempty"`
	Venue            *Venue    `json:"venue,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
}

// Venue is the related-entity projection merged into event reads.
// Venue storage itself is owned elsewhere; events only embed it.
type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// EventInput is the client-supplied payload for event creation. Times
// arrive as local-time-plus-offset and are normalized to UTC before
// persistence.
type EventInput struct {
	Title            string    `json:"title" validate:"omitempty,max=200"`
	Description      string    `json:"description" validate:"omitempty,max=10000"`
	StartTime        time.Time `json:"start_time" validate:"required"`
	EndTime          time.Time `json:"end_time" validate:"required,gtefield=StartTime"`
	OrganizerContact string    `json:"organizer_contact" validate:"omitempty,max=500"`
	Tags             []string  `json:"tags" validate:"omitempty,max=25,dive,max=50"`
	VenueID          *string   `json:"venue_id"`
}

// Filters select events for list reads. The currentness predicate is
// owned by the persistence layer; Current only toggles it.
type Filters struct {
	Verified     *bool
	Current      bool
	OrderByStart bool
	WithVenue    bool
}

// Repository is the narrow CRUD contract the persistence engine
// exposes for events.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	GetWithVenue(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, event Event) error
	Update(ctx context.Context, id string, changes map[string]any) error
	Delete(ctx context.Context, id string) error
	ListByTag(ctx context.Context, tag string, embedVenue bool) ([]Event, error)
}

// ValidationError reports a rejected creation payload field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
