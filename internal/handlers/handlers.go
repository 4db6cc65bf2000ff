package handlers

import (
	"net/http"
	"strconv"

	"github.com/ledgerline/go-erp/auth"
	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/httpx"
)

// checkAccess extracts the authenticated user and runs the gate for the
// requested action. It writes the error response itself and reports whether
// the handler may proceed.
func checkAccess(w http.ResponseWriter, r *http.Request, g *gate.Gate[uint], action gate.Action, resource string) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	if err := g.Authorize(r.Context(), uid, action, resource, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return 0, false
	}
	return uid, true
}

// queryID reads the ?id= query parameter.
func queryID(r *http.Request) (uint, bool) {
	v := r.URL.Query().Get("id")
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination reads limit/page query parameters with the defaults used across
// all list endpoints.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}
