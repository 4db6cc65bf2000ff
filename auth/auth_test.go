package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := CreateToken(42, "sales")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	uid, role, ok := ParseToken(token)
	if !ok {
		t.Fatal("token does not parse")
	}
	if uid != 42 || role != "sales" {
		t.Fatalf("identity = (%d, %q), want (42, sales)", uid, role)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, _, ok := ParseToken("not-a-token"); ok {
		t.Fatal("garbage token accepted")
	}
	// A token signed with a different secret must not validate.
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := CreateToken(7, "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Setenv("JWT_SECRET", "second-secret")
	if _, _, ok := ParseToken(token); ok {
		t.Fatal("token accepted under the wrong secret")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	token, err := CreateToken(9, "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var gotUID uint
	var gotRole string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUID, _ = UserIDFromContext(r.Context())
		gotRole, _ = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotUID != 9 || gotRole != "admin" {
		t.Fatalf("context identity = (%d, %q), want (9, admin)", gotUID, gotRole)
	}

	// Malformed header leaves the context empty.
	gotUID, gotRole = 0, ""
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotUID != 0 {
		t.Fatalf("identity from malformed header: %d", gotUID)
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(RequireAuth(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", rec.Code)
	}

	token, err := CreateToken(3, "sales")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token = %d, want 204", rec.Code)
	}
}

func TestRequireAuthHonorsVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 13 })
	t.Cleanup(func() { SetUserVerifier(nil) })

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(RequireAuth(next))

	token, err := CreateToken(13, "sales")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("rejected user = %d, want 401", rec.Code)
	}
}
