// Package resource turns a plain data-access controller into a full
// REST endpoint set (list, get, create, update, delete) with uniform
// envelopes, per-verb middleware chains, override read methods, and an
// identity-driven post-read redaction filter.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/citycal/server/internal/api/envelope"
	"github.com/citycal/server/internal/domain/identity"
)

// Controller is the narrow data-access contract a resource supplies.
type Controller[T any] interface {
	List(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, record T) error
	Update(ctx context.Context, id string, changes map[string]any) error
	Delete(ctx context.Context, id string) error
}

// ReadFilter redacts fetched records for the caller before
// serialization. It runs on every read, single or batch.
type ReadFilter[T any] func(caller identity.Identity, records []T) []T

// Options configures the optional hooks of a resource router.
type Options[T any] struct {
	// ListMethod replaces the default list call when set.
	ListMethod func(ctx context.Context) ([]T, error)
	// GetByIDMethod replaces the default get-by-id call when set.
	GetByIDMethod func(ctx context.Context, id string) (T, error)

	// Per-verb middleware chains, run in declared order before the
	// verb handler. Update and Delete default to an elevated-identity
	// requirement when nil.
	ListSteps   []Step
	CreateSteps []Step
	UpdateSteps []Step
	DeleteSteps []Step

	// Defaults is the default-visibility policy applied to records
	// persisted through the default create path.
	Defaults func(record T) T

	// ReadFilter strips sensitive fields from read results.
	ReadFilter ReadFilter[T]

	// NotFound classifies controller errors that mean "no such
	// record" and should surface as 404.
	NotFound error
}

// Router serves the five generic verbs for one named resource.
type Router[T any] struct {
	name     string
	listName string
	ctrl     Controller[T]
	opts     Options[T]
}

// New builds a resource router. name keys single-record payloads
// (e.g. "event"), listName keys list payloads (e.g. "events").
func New[T any](name, listName string, ctrl Controller[T], opts Options[T]) *Router[T] {
	if opts.UpdateSteps == nil {
		opts.UpdateSteps = []Step{RequireElevated()}
	}
	if opts.DeleteSteps == nil {
		opts.DeleteSteps = []Step{RequireElevated()}
	}
	return &Router[T]{name: name, listName: listName, ctrl: ctrl, opts: opts}
}

// Mount registers the verb handlers on mux under prefix, e.g.
// GET /events, GET /events/{id}, POST /events, PUT /events/{id},
// DELETE /events/{id}.
func (rt *Router[T]) Mount(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix, rt.list)
	mux.HandleFunc("GET "+prefix+"/{id}", rt.get)
	mux.HandleFunc("POST "+prefix, rt.create)
	mux.HandleFunc("PUT "+prefix+"/{id}", rt.update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", rt.delete)
}

func (rt *Router[T]) list(w http.ResponseWriter, r *http.Request) {
	r, halted := Run(rt.opts.ListSteps, w, r)
	if halted {
		return
	}

	listFn := rt.ctrl.List
	if rt.opts.ListMethod != nil {
		listFn = rt.opts.ListMethod
	}

	records, err := listFn(r.Context())
	if err != nil {
		envelope.Failed(w, r, http.StatusNotImplemented, err)
		return
	}
	if records == nil {
		records = []T{}
	}
	if rt.opts.ReadFilter != nil {
		records = rt.opts.ReadFilter(identity.FromContext(r.Context()), records)
	}
	envelope.SuccessWith(w, rt.listName, records)
}

func (rt *Router[T]) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		envelope.Explain(w, r, http.StatusNotFound, "id is a required field")
		return
	}

	getFn := rt.ctrl.GetByID
	if rt.opts.GetByIDMethod != nil {
		getFn = rt.opts.GetByIDMethod
	}

	record, err := getFn(r.Context(), id)
	if err != nil {
		if rt.isNotFound(err) {
			envelope.Failed(w, r, http.StatusNotFound, err)
			return
		}
		envelope.Failed(w, r, http.StatusInternalServerError, err)
		return
	}

	if rt.opts.ReadFilter != nil {
		// The filter owns the response record. A filter that drops the
		// record entirely yields the zero value rather than falling back
		// to the unfiltered one.
		filtered := rt.opts.ReadFilter(identity.FromContext(r.Context()), []T{record})
		if len(filtered) == 0 {
			var zero T
			record = zero
		} else {
			record = filtered[0]
		}
	}
	envelope.SuccessWith(w, rt.name, record)
}

func (rt *Router[T]) create(w http.ResponseWriter, r *http.Request) {
	r, halted := Run(rt.opts.CreateSteps, w, r)
	if halted {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		envelope.Explain(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("%s parameter is required", rt.name))
		return
	}
	raw, ok := body[rt.name]
	if !ok {
		envelope.Explain(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("%s parameter is required", rt.name))
		return
	}

	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		envelope.Explain(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("malformed %s payload", rt.name))
		return
	}
	if rt.opts.Defaults != nil {
		record = rt.opts.Defaults(record)
	}

	if err := rt.ctrl.Create(r.Context(), record); err != nil {
		envelope.Failed(w, r, http.StatusInternalServerError, err)
		return
	}
	envelope.Success(w)
}

func (rt *Router[T]) update(w http.ResponseWriter, r *http.Request) {
	r, halted := Run(rt.opts.UpdateSteps, w, r)
	if halted {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		envelope.Explain(w, r, http.StatusNotFound, "id is a required field")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		envelope.Explain(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("%s parameter is required", rt.name))
		return
	}
	changes := body
	if wrapped, ok := body[rt.name].(map[string]any); ok {
		changes = wrapped
	}

	if err := rt.ctrl.Update(r.Context(), id, changes); err != nil {
		if rt.isNotFound(err) {
			envelope.Failed(w, r, http.StatusNotFound, err)
			return
		}
		envelope.Failed(w, r, http.StatusInternalServerError, err)
		return
	}
	envelope.Success(w)
}

func (rt *Router[T]) delete(w http.ResponseWriter, r *http.Request) {
	r, halted := Run(rt.opts.DeleteSteps, w, r)
	if halted {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		envelope.Explain(w, r, http.StatusNotFound, "id is a required field")
		return
	}

	if err := rt.ctrl.Delete(r.Context(), id); err != nil {
		if rt.isNotFound(err) {
			envelope.Failed(w, r, http.StatusNotFound, err)
			return
		}
		envelope.Failed(w, r, http.StatusInternalServerError, err)
		return
	}
	envelope.Success(w)
}

func (rt *Router[T]) isNotFound(err error) bool {
	return rt.opts.NotFound != nil && errors.Is(err, rt.opts.NotFound)
}
