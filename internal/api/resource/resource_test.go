package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/citycal/server/internal/domain/identity"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("widget not found")

type widget struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"secret,omitempty"`
	Public bool   `json:"public"`
}

type stubController struct {
	listFn   func(ctx context.Context) ([]widget, error)
	getFn    func(ctx context.Context, id string) (widget, error)
	createFn func(ctx context.Context, record widget) error
	updateFn func(ctx context.Context, id string, changes map[string]any) error
	deleteFn func(ctx context.Context, id string) error
}

func (s stubController) List(ctx context.Context) ([]widget, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubController) GetByID(ctx context.Context, id string) (widget, error) {
	if s.getFn == nil {
		return widget{}, errMissing
	}
	return s.getFn(ctx, id)
}

func (s stubController) Create(ctx context.Context, record widget) error {
	if s.createFn == nil {
		return errors.New("not implemented")
	}
	return s.createFn(ctx, record)
}

func (s stubController) Update(ctx context.Context, id string, changes map[string]any) error {
	if s.updateFn == nil {
		return errors.New("not implemented")
	}
	return s.updateFn(ctx, id, changes)
}

func (s stubController) Delete(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return errors.New("not implemented")
	}
	return s.deleteFn(ctx, id)
}

func mount(ctrl Controller[widget], opts Options[widget]) *http.ServeMux {
	mux := http.NewServeMux()
	New("widget", "widgets", ctrl, opts).Mount(mux, "/widgets")
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string, caller identity.Identity) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(identity.WithIdentity(req.Context(), caller))
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	return res
}

func decode(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return payload
}

func TestRunStopsAtFirstHalt(t *testing.T) {
	var order []string
	first := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "first")
		return nil, false
	}
	second := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "second")
		w.WriteHeader(http.StatusTeapot)
		return nil, true
	}
	third := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "third")
		return nil, false
	}

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, halted := Run([]Step{first, second, third}, res, req)

	require.True(t, halted)
	require.Equal(t, []string{"first", "second"}, order)
	require.Equal(t, http.StatusTeapot, res.Code)
}

func TestRunThreadsRewrittenRequest(t *testing.T) {
	type key struct{}
	first := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		return r.WithContext(context.WithValue(r.Context(), key{}, "threaded")), false
	}
	var seen string
	second := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		seen, _ = r.Context().Value(key{}).(string)
		return nil, false
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	out, halted := Run([]Step{first, second}, httptest.NewRecorder(), req)

	require.False(t, halted)
	require.Equal(t, "threaded", seen)
	require.Equal(t, "threaded", out.Context().Value(key{}))
}

func TestListDefaultEnvelope(t *testing.T) {
	mux := mount(stubController{
		listFn: func(ctx context.Context) ([]widget, error) {
			return []widget{{ID: "1", Name: "alpha"}}, nil
		},
	}, Options[widget]{})

	res := doRequest(mux, http.MethodGet, "/widgets", "", identity.Anonymous)
	require.Equal(t, http.StatusOK, res.Code)
	payload := decode(t, res)
	require.Equal(t, "success", payload["status"])
	require.Len(t, payload["widgets"], 1)
}

func TestListOverrideMethodWins(t *testing.T) {
	mux := mount(stubController{
		listFn: func(ctx context.Context) ([]widget, error) {
			t.Fatal("default list must not run when an override is set")
			return nil, nil
		},
	}, Options[widget]{
		ListMethod: func(ctx context.Context) ([]widget, error) {
			return []widget{{ID: "override"}}, nil
		},
	})

	res := doRequest(mux, http.MethodGet, "/widgets", "", identity.Anonymous)
	payload := decode(t, res)
	items := payload["widgets"].([]any)
	require.Equal(t, "override", items[0].(map[string]any)["id"])
}

func TestListFailureUses501(t *testing.T) {
	mux := mount(stubController{
		listFn: func(ctx context.Context) ([]widget, error) {
			return nil, errors.New("boom")
		},
	}, Options[widget]{})

	res := doRequest(mux, http.MethodGet, "/widgets", "", identity.Anonymous)
	require.Equal(t, http.StatusNotImplemented, res.Code)
	require.Equal(t, "failed: boom", decode(t, res)["status"])
}

func TestListAppliesReadFilter(t *testing.T) {
	mux := mount(stubController{
		listFn: func(ctx context.Context) ([]widget, error) {
			return []widget{{ID: "1", Secret: "hidden"}}, nil
		},
	}, Options[widget]{
		ReadFilter: func(caller identity.Identity, records []widget) []widget {
			if caller.Elevated {
				return records
			}
			for i := range records {
				records[i].Secret = ""
			}
			return records
		},
	})

	res := doRequest(mux, http.MethodGet, "/widgets", "", identity.Anonymous)
	items := decode(t, res)["widgets"].([]any)
	require.NotContains(t, items[0].(map[string]any), "secret")

	res = doRequest(mux, http.MethodGet, "/widgets", "", identity.Identity{Authenticated: true, Elevated: true})
	items = decode(t, res)["widgets"].([]any)
	require.Equal(t, "hidden", items[0].(map[string]any)["secret"])
}

func TestGetNotFound(t *testing.T) {
	mux := mount(stubController{
		getFn: func(ctx context.Context, id string) (widget, error) {
			return widget{}, errMissing
		},
	}, Options[widget]{NotFound: errMissing})

	res := doRequest(mux, http.MethodGet, "/widgets/42", "", identity.Anonymous)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "failed: widget not found", decode(t, res)["status"])
}

func TestGetAppliesReadFilterToSingleRecord(t *testing.T) {
	mux := mount(stubController{
		getFn: func(ctx context.Context, id string) (widget, error) {
			return widget{ID: id, Secret: "hidden"}, nil
		},
	}, Options[widget]{
		ReadFilter: func(caller identity.Identity, records []widget) []widget {
			for i := range records {
				records[i].Secret = ""
			}
			return records
		},
	})

	res := doRequest(mux, http.MethodGet, "/widgets/42", "", identity.Anonymous)
	require.Equal(t, http.StatusOK, res.Code)
	record := decode(t, res)["widget"].(map[string]any)
	require.Equal(t, "42", record["id"])
	require.NotContains(t, record, "secret")
}

func TestGetNeverFallsBackToUnfilteredRecord(t *testing.T) {
	mux := mount(stubController{
		getFn: func(ctx context.Context, id string) (widget, error) {
			return widget{ID: id, Secret: "hidden"}, nil
		},
	}, Options[widget]{
		ReadFilter: func(caller identity.Identity, records []widget) []widget {
			if caller.Elevated {
				return records
			}
			return nil
		},
	})

	res := doRequest(mux, http.MethodGet, "/widgets/42", "", identity.Anonymous)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotContains(t, res.Body.String(), "hidden")
	record := decode(t, res)["widget"].(map[string]any)
	require.NotContains(t, record, "secret")
}

func TestCreateRunsStepsInOrder(t *testing.T) {
	var order []string
	stepA := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "a")
		return nil, false
	}
	stepB := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		order = append(order, "b")
		return nil, false
	}

	created := false
	mux := mount(stubController{
		createFn: func(ctx context.Context, record widget) error {
			created = true
			require.Equal(t, "alpha", record.Name)
			require.False(t, record.Public, "defaults must apply")
			return nil
		},
	}, Options[widget]{
		CreateSteps: []Step{stepA, stepB},
		Defaults: func(record widget) widget {
			record.Public = false
			return record
		},
	})

	res := doRequest(mux, http.MethodPost, "/widgets", `{"widget":{"name":"alpha","public":true}}`, identity.Anonymous)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, []string{"a", "b"}, order)
	require.True(t, created)
}

func TestCreateStepShortCircuits(t *testing.T) {
	halting := func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return nil, true
	}
	mux := mount(stubController{
		createFn: func(ctx context.Context, record widget) error {
			t.Fatal("controller create must not run after a halt")
			return nil
		},
	}, Options[widget]{CreateSteps: []Step{halting}})

	res := doRequest(mux, http.MethodPost, "/widgets", `{"widget":{}}`, identity.Anonymous)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestCreateMissingPayload(t *testing.T) {
	mux := mount(stubController{}, Options[widget]{})

	res := doRequest(mux, http.MethodPost, "/widgets", `{"other":{}}`, identity.Anonymous)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, "widget parameter is required", decode(t, res)["status"])
}

func TestUpdateRequiresElevatedByDefault(t *testing.T) {
	mux := mount(stubController{
		updateFn: func(ctx context.Context, id string, changes map[string]any) error {
			return nil
		},
	}, Options[widget]{})

	res := doRequest(mux, http.MethodPut, "/widgets/42", `{"name":"renamed"}`, identity.Anonymous)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = doRequest(mux, http.MethodPut, "/widgets/42", `{"name":"renamed"}`, identity.Identity{Authenticated: true})
	require.Equal(t, http.StatusForbidden, res.Code)

	res = doRequest(mux, http.MethodPut, "/widgets/42", `{"name":"renamed"}`, identity.Identity{Authenticated: true, Elevated: true})
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "success", decode(t, res)["status"])
}

func TestUpdateUnwrapsNamedPayload(t *testing.T) {
	var got map[string]any
	mux := mount(stubController{
		updateFn: func(ctx context.Context, id string, changes map[string]any) error {
			got = changes
			return nil
		},
	}, Options[widget]{})

	res := doRequest(mux, http.MethodPut, "/widgets/42", `{"widget":{"name":"renamed"}}`, identity.Identity{Authenticated: true, Elevated: true})
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, map[string]any{"name": "renamed"}, got)
}

func TestDeleteRequiresElevatedByDefault(t *testing.T) {
	deleted := false
	mux := mount(stubController{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}, Options[widget]{})

	res := doRequest(mux, http.MethodDelete, "/widgets/42", "", identity.Anonymous)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.False(t, deleted)

	res = doRequest(mux, http.MethodDelete, "/widgets/42", "", identity.Identity{Authenticated: true, Elevated: true})
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, deleted)
}

func TestUpdateNotFound(t *testing.T) {
	mux := mount(stubController{
		updateFn: func(ctx context.Context, id string, changes map[string]any) error {
			return errMissing
		},
	}, Options[widget]{NotFound: errMissing})

	res := doRequest(mux, http.MethodPut, "/widgets/42", `{"name":"x"}`, identity.Identity{Authenticated: true, Elevated: true})
	require.Equal(t, http.StatusNotFound, res.Code)
}
