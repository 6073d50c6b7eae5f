package resource

import (
	"net/http"

	"github.com/citycal/server/internal/api/envelope"
	"github.com/citycal/server/internal/domain/identity"
)

// Step is one unit of a verb middleware chain. A step may rewrite the
// request (to thread derived state through the context) and halts the
// chain by writing a response and returning true.
type Step func(w http.ResponseWriter, r *http.Request) (*http.Request, bool)

// Run executes steps in declared order, stopping at the first halt.
// It returns the (possibly rewritten) request and whether the chain
// halted.
func Run(steps []Step, w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	for _, step := range steps {
		next, halted := step(w, r)
		if halted {
			return r, true
		}
		if next != nil {
			r = next
		}
	}
	return r, false
}

// RequireElevated halts the chain unless the caller identity is
// elevated: 401 for anonymous callers, 403 for authenticated callers
// without admin capability.
func RequireElevated() Step {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		caller := identity.FromContext(r.Context())
		if caller.Elevated {
			return nil, false
		}
		if !caller.Authenticated {
			envelope.Explain(w, r, http.StatusUnauthorized, "authentication required")
			return nil, true
		}
		envelope.Explain(w, r, http.StatusForbidden, "admin access required")
		return nil, true
	}
}
