package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/citycal/server/internal/api/envelope"
	"github.com/citycal/server/internal/api/resource"
	"github.com/citycal/server/internal/domain/events"
	"github.com/citycal/server/internal/domain/identity"
	"github.com/citycal/server/internal/metrics"
	"github.com/rs/zerolog"
)

// EventsHandler wires the event resource: the generic CRUD router plus
// the verification workflow, current listings, and the tag query.
type EventsHandler struct {
	Service *events.Service
	Creator *events.CreateService
}

func NewEventsHandler(service *events.Service, creator *events.CreateService) *EventsHandler {
	return &EventsHandler{Service: service, Creator: creator}
}

// Mount registers every event route on mux.
func (h *EventsHandler) Mount(mux *http.ServeMux) {
	router := resource.New("event", "events", h.Service, resource.Options[events.Event]{
		// Getters merge venue data into the event records.
		ListMethod:    h.Service.ListWithVenues,
		GetByIDMethod: h.Service.GetWithVenue,
		// Anyone can create; dates are normalized before the pipeline runs.
		CreateSteps: []resource.Step{h.NormalizeDates(), h.CreatePipeline()},
		// Update and delete keep the default elevated-identity requirement.
		ReadFilter: events.RedactContact,
		Defaults: func(ev events.Event) events.Event {
			ev.Verified = false
			return ev
		},
		NotFound: events.ErrNotFound,
	})
	router.Mount(mux, "/events")

	mux.HandleFunc("GET /events/current/non-verified", h.CurrentNonVerified)
	mux.HandleFunc("GET /events/current/verified", h.CurrentVerified)
	mux.HandleFunc("PUT /events/verify/{id}", h.Verify)
	mux.HandleFunc("GET /events/tags/{tag}", h.ByTag)
}

type payloadKey struct{}

type createRequest struct {
	Event *events.EventInput `json:"event"`
}

// NormalizeDates decodes the creation body and converts the start and
// end instants to UTC, threading the payload through the request
// context for the pipeline step.
func (h *EventsHandler) NormalizeDates() resource.Step {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		var body createRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			envelope.Explain(w, r, http.StatusUnprocessableEntity, "event parameter is required")
			return nil, true
		}
		if body.Event != nil {
			body.Event.StartTime = body.Event.StartTime.UTC()
			body.Event.EndTime = body.Event.EndTime.UTC()
		}
		ctx := context.WithValue(r.Context(), payloadKey{}, body.Event)
		return r.WithContext(ctx), false
	}
}

// CreatePipeline runs the creation side-effect pipeline and always
// owns the response, so the chain halts here.
func (h *EventsHandler) CreatePipeline() resource.Step {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		input, _ := r.Context().Value(payloadKey{}).(*events.EventInput)
		if input == nil {
			envelope.Explain(w, r, http.StatusUnprocessableEntity, "event parameter is required")
			return nil, true
		}

		created, err := h.Creator.Create(r.Context(), *input)
		if err != nil {
			var verr events.ValidationError
			switch {
			case errors.As(err, &verr):
				envelope.Explain(w, r, http.StatusUnprocessableEntity, verr.Error())
			case errors.Is(err, events.ErrShortenerFailed):
				envelope.Explain(w, r, http.StatusInternalServerError, "error calling link shortener")
			default:
				envelope.Explain(w, r, http.StatusInternalServerError, fmt.Sprintf("error creating %q: %v", "event", err))
			}
			return nil, true
		}

		metrics.EventsCreatedTotal.Inc()
		envelope.SuccessWith(w, "id", created.ID)
		return nil, true
	}
}

// CurrentNonVerified lists current events awaiting verification.
// Admin only.
func (h *EventsHandler) CurrentNonVerified(w http.ResponseWriter, r *http.Request) {
	r, halted := resource.Run([]resource.Step{resource.RequireElevated()}, w, r)
	if halted {
		return
	}

	list, err := h.Service.CurrentNonVerified(r.Context())
	if err != nil {
		envelope.Failed(w, r, http.StatusNotImplemented, err)
		return
	}
	envelope.SuccessWith(w, "events", nonNil(list))
}

// CurrentVerified lists current verified events, ordered by start
// time, redacted for the caller. Public.
func (h *EventsHandler) CurrentVerified(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.CurrentVerified(r.Context())
	if err != nil {
		envelope.Failed(w, r, http.StatusNotImplemented, err)
		return
	}
	list = events.RedactContact(identity.FromContext(r.Context()), list)
	envelope.SuccessWith(w, "events", nonNil(list))
}

// Verify marks an event verified. Admin only.
func (h *EventsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r, halted := resource.Run([]resource.Step{resource.RequireElevated()}, w, r)
	if halted {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		envelope.Explain(w, r, http.StatusNotFound, "id is a required field")
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("event_id", id).Msg("handling request to verify event")

	if err := h.Service.Verify(r.Context(), id); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			envelope.Failed(w, r, http.StatusNotFound, err)
			return
		}
		envelope.Failed(w, r, http.StatusInternalServerError, err)
		return
	}

	metrics.EventsVerifiedTotal.Inc()
	envelope.Success(w)
}

// ByTag lists events carrying a tag, with optional venue embedding.
// Admin only, so no redaction filter runs here; reinsert it if this
// route is ever opened to standard callers.
func (h *EventsHandler) ByTag(w http.ResponseWriter, r *http.Request) {
	r, halted := resource.Run([]resource.Step{resource.RequireElevated()}, w, r)
	if halted {
		return
	}

	tag := r.PathValue("tag")
	if tag == "" {
		envelope.Explain(w, r, http.StatusNotFound, "tag is a required field")
		return
	}

	embedVenue := false
	for _, embed := range r.URL.Query()["embed"] {
		if embed != "venue" {
			envelope.Explain(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("embed value not allowed: %s", embed))
			return
		}
		embedVenue = true
	}

	list, err := h.Service.ListByTag(r.Context(), tag, embedVenue)
	if err != nil {
		envelope.Failed(w, r, http.StatusNotImplemented, err)
		return
	}
	envelope.SuccessWith(w, "events", nonNil(list))
}

func nonNil(list []events.Event) []events.Event {
	if list == nil {
		return []events.Event{}
	}
	return list
}
