package events

import (
	"context"
)

// Service exposes event reads and writes over the repository. Its
// List/GetByID/Create/Update/Delete methods satisfy the generic
// resource controller contract; the remaining methods back the
// verification workflow and the tag query.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx, Filters{})
}

func (s *Service) GetByID(ctx context.Context, id string) (Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return *event, nil
}

func (s *Service) Create(ctx context.Context, event Event) error {
	return s.repo.Create(ctx, event)
}

// Update applies a partial change set. Immutable and workflow-owned
// fields (id, short link, verified) are stripped so the generic update
// path cannot violate the creation and verification invariants.
func (s *Service) Update(ctx context.Context, id string, changes map[string]any) error {
	filtered := make(map[string]any, len(changes))
	for key, value := range changes {
		switch key {
		case "id", "short_link", "verified":
			continue
		}
		filtered[key] = value
	}
	return s.repo.Update(ctx, id, filtered)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ListWithVenues is the list override: events merged with their venue
// records.
func (s *Service) ListWithVenues(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx, Filters{WithVenue: true})
}

// GetWithVenue is the get-by-id override: a single event merged with
// its venue record.
func (s *Service) GetWithVenue(ctx context.Context, id string) (Event, error) {
	event, err := s.repo.GetWithVenue(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return *event, nil
}

// Verify marks an event verified. The transition is monotonic:
// verifying an already-verified event is an idempotent success, and no
// operation ever clears the flag.
func (s *Service) Verify(ctx context.Context, id string) error {
	return s.repo.Update(ctx, id, map[string]any{"verified": true})
}

// CurrentVerified lists current verified events ordered by start time
// ascending. This is the public calendar view.
func (s *Service) CurrentVerified(ctx context.Context) ([]Event, error) {
	verified := true
	return s.repo.List(ctx, Filters{Verified: &verified, Current: true, OrderByStart: true})
}

// CurrentNonVerified lists current events still awaiting verification.
// Restricted to elevated callers at the route level.
func (s *Service) CurrentNonVerified(ctx context.Context) ([]Event, error) {
	verified := false
	return s.repo.List(ctx, Filters{Verified: &verified, Current: true})
}

// ListByTag lists events carrying the given tag, optionally embedding
// venue records.
func (s *Service) ListByTag(ctx context.Context, tag string, embedVenue bool) ([]Event, error) {
	return s.repo.ListByTag(ctx, tag, embedVenue)
}
