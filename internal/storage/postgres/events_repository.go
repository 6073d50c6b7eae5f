package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/citycal/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var _ events.Repository = (*EventsRepository)(nil)

const eventColumns = `e.id, e.title, e.description, e.start_time, e.end_time,
       e.organizer_contact, e.slug, e.short_link, e.verified, e.tags, e.venue_id,
       e.created_at, e.updated_at,
       v.id, v.name, v.address, v.city`

type eventRow struct {
	ID               string
	Title            string
	Description      string
	StartTime        pgtype.Timestamptz
	EndTime          pgtype.Timestamptz
	OrganizerContact *string
	Slug             string
	ShortLink        string
	Verified         bool
	Tags             []string
	VenueID          *string
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
	VenueRowID       *string
	VenueName        *string
	VenueAddress     *string
	VenueCity        *string
}

func (r *EventsRepository) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	var (
		conditions []string
		args       []any
	)
	if filters.Verified != nil {
		args = append(args, *filters.Verified)
		conditions = append(conditions, fmt.Sprintf("e.verified = $%d", len(args)))
	}
	if filters.Current {
		args = append(args, time.Now().UTC().Add(-r.grace))
		conditions = append(conditions, fmt.Sprintf("e.end_time >= $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + `
  FROM events e
  LEFT JOIN venues v ON v.id = e.venue_id`
	if len(conditions) > 0 {
		query += "\n WHERE " + strings.Join(conditions, " AND ")
	}
	if filters.OrderByStart {
		query += "\n ORDER BY e.start_time ASC"
	} else {
		query += "\n ORDER BY e.created_at DESC"
	}

	return r.queryEvents(ctx, filters.WithVenue, query, args...)
}

func (r *EventsRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	return r.getOne(ctx, id, false)
}

func (r *EventsRepository) GetWithVenue(ctx context.Context, id string) (*events.Event, error) {
	return r.getOne(ctx, id, true)
}

func (r *EventsRepository) getOne(ctx context.Context, id string, withVenue bool) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+`
  FROM events e
  LEFT JOIN venues v ON v.id = e.venue_id
 WHERE e.id = $1`, id)

	event, err := scanEvent(row, withVenue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventsRepository) Create(ctx context.Context, event events.Event) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO events (id, title, description, start_time, end_time,
                    organizer_contact, slug, short_link, verified, tags, venue_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID,
		event.Title,
		event.Description,
		event.StartTime.UTC(),
		event.EndTime.UTC(),
		event.OrganizerContact,
		event.Slug,
		event.ShortLink,
		event.Verified,
		tagsOrEmpty(event.Tags),
		event.VenueID,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update applies a whitelisted partial change set. Keys outside the
// whitelist are ignored rather than rejected, so stale clients cannot
// break the generic update path.
func (r *EventsRepository) Update(ctx context.Context, id string, changes map[string]any) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	for key, value := range changes {
		converted, cast, ok := updateColumn(key, value)
		if !ok {
			continue
		}
		args = append(args, converted)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", key, len(args), cast))
	}

	tag, err := r.queryer().Exec(ctx,
		fmt.Sprintf("UPDATE events SET %s WHERE id = $1", strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// updateColumn maps a change-set key to its column cast and converts
// JSON-decoded values into types pgx can encode.
func updateColumn(key string, value any) (any, string, bool) {
	switch key {
	case "title", "description", "slug", "organizer_contact", "venue_id":
		return value, "", true
	case "verified":
		return value, "", true
	case "start_time", "end_time":
		return value, "::timestamptz", true
	case "tags":
		if raw, ok := value.([]any); ok {
			tags := make([]string, 0, len(raw))
			for _, item := range raw {
				if s, ok := item.(string); ok {
					tags = append(tags, s)
				}
			}
			return tags, "", true
		}
		return value, "", true
	default:
		return nil, "", false
	}
}

func (r *EventsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventsRepository) ListByTag(ctx context.Context, tag string, embedVenue bool) ([]events.Event, error) {
	return r.queryEvents(ctx, embedVenue, `SELECT `+eventColumns+`
  FROM events e
  LEFT JOIN venues v ON v.id = e.venue_id
 WHERE $1 = ANY(e.tags)
 ORDER BY e.start_time ASC`, tag)
}

func (r *EventsRepository) queryEvents(ctx context.Context, withVenue bool, query string, args ...any) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := []events.Event{}
	for rows.Next() {
		event, err := scanEvent(rows, withVenue)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func scanEvent(row pgx.Row, withVenue bool) (*events.Event, error) {
	var r eventRow
	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.StartTime,
		&r.EndTime,
		&r.OrganizerContact,
		&r.Slug,
		&r.ShortLink,
		&r.Verified,
		&r.Tags,
		&r.VenueID,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.VenueRowID,
		&r.VenueName,
		&r.VenueAddress,
		&r.VenueCity,
	); err != nil {
		return nil, err
	}

	event := events.Event{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		OrganizerContact: r.OrganizerContact,
		Slug:             r.Slug,
		ShortLink:        r.ShortLink,
		Verified:         r.Verified,
		Tags:             r.Tags,
		VenueID:          r.VenueID,
	}
	if r.StartTime.Valid {
		event.StartTime = r.StartTime.Time.UTC()
	}
	if r.EndTime.Valid {
		event.EndTime = r.EndTime.Time.UTC()
	}
	if r.CreatedAt.Valid {
		event.CreatedAt = r.CreatedAt.Time.UTC()
	}
	if r.UpdatedAt.Valid {
		event.UpdatedAt = r.UpdatedAt.Time.UTC()
	}
	if withVenue && r.VenueRowID != nil {
		event.Venue = &events.Venue{
			ID:      *r.VenueRowID,
			Name:    derefString(r.VenueName),
			Address: derefString(r.VenueAddress),
			City:    derefString(r.VenueCity),
		}
	}
	return &event, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
