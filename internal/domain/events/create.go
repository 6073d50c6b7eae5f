package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/citycal/server/internal/domain/ids"
	"github.com/go-playground/validator/v10"
)

// Shortener is the external link-shortening collaborator.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// CreateService assembles and persists new events. All side effects
// (identifier allocation, link shortening, slug derivation) complete
// before the record is persisted, so a half-populated event can never
// exist in storage. A shortening failure aborts creation entirely.
type CreateService struct {
	repo      Repository
	shortener Shortener
	baseURL   string
	validate  *validator.Validate
}

func NewCreateService(repo Repository, shortener Shortener, baseURL string) *CreateService {
	return &CreateService{
		repo:      repo,
		shortener: shortener,
		baseURL:   strings.TrimRight(baseURL, "/"),
		validate:  validator.New(),
	}
}

// Create runs the creation pipeline for a normalized input payload and
// returns the persisted event.
func (s *CreateService) Create(ctx context.Context, input EventInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("allocate event id: %w", err)
	}

	shortLink, err := s.shortener.Shorten(ctx, fmt.Sprintf("%s/events/%s", s.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortenerFailed, err)
	}

	event := Event{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		Slug:        Slugify(input.Title),
		ShortLink:   shortLink,
		Verified:    false,
		Tags:        input.Tags,
		VenueID:     input.VenueID,
	}
	if input.OrganizerContact != "" {
		contact := input.OrganizerContact
		event.OrganizerContact = &contact
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &event, nil
}

func asValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if ok := errors.As(err, &fieldErrors); ok && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed %s constraint", fe.Tag()),
		}
	}
	return ValidationError{Message: err.Error()}
}
