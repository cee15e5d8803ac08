package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"matchcore/authn"
	"matchcore/matchcore"
	"matchcore/profile"
)

// fakeAuthRepo is the same in-memory authn.Repository stand-in used by
// authn's own service tests, duplicated here because handler tests live
// in a different package and authn's fake is unexported.
type fakeAuthRepo struct {
	byEmail map[string]authn.User
	byID    map[string]authn.User
	nextID  int
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{byEmail: map[string]authn.User{}, byID: map[string]authn.User{}, nextID: 1}
}

func (f *fakeAuthRepo) CreateUser(ctx context.Context, params authn.CreateUserParams) (authn.User, error) {
	if _, exists := f.byEmail[params.Email]; exists {
		return authn.User{}, authn.ErrDuplicateEmail
	}
	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	u := authn.User{ID: id, Email: params.Email, FullName: params.FullName, PasswordHash: params.PasswordHash, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	f.byEmail[params.Email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeAuthRepo) GetUserByEmail(ctx context.Context, email string) (authn.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return authn.User{}, authn.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAuthRepo) GetUserByID(ctx context.Context, userID string) (authn.User, error) {
	u, ok := f.byID[userID]
	if !ok {
		return authn.User{}, authn.ErrUserNotFound
	}
	return u, nil
}

// fakeSingleProfile hands every lookup the same Facts, enough to exercise
// the matchcore.Engine handlers without a real profile.Repository.
type fakeSingleProfile struct {
	facts profile.Facts
}

func (f fakeSingleProfile) Facts(ctx context.Context, userID string) (profile.Facts, error) {
	facts := f.facts
	facts.UserID = userID
	return facts, nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	repo := newFakeAuthRepo()
	authService := authn.NewService(repo, "test-secret")

	cfg := matchcore.DefaultConfig()
	profiles := fakeSingleProfile{facts: profile.Facts{
		Gender:           profile.GenderMale,
		GenderPreference: profile.PreferFemale,
		Age:              30,
		Cities:           []string{"austin"},
	}}
	engine := matchcore.NewEngine(cfg, matchcore.SystemClock{}, profiles)

	server := &Server{authService: authService, engine: engine}

	ctx := context.Background()
	user, err := authService.Register(ctx, authn.RegisterRequest{Email: "alice@example.com", Password: "supersafe", FullName: "Alice Dater"})
	if err != nil {
		t.Fatalf("seed register: %v", err)
	}
	login, err := authService.Login(ctx, authn.LoginRequest{Email: "alice@example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("seed login: %v", err)
	}
	if login.User.ID != user.ID {
		t.Fatalf("expected matching user id, got %q vs %q", login.User.ID, user.ID)
	}
	return server, login.Token
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKeyUserID, userID))
}

func TestHandleSpin_RequiresAuthContext(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/spin", nil)
	rec := httptest.NewRecorder()

	server.handleSpin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleSpin_WrongMethod(t *testing.T) {
	server, _ := newTestServer(t)
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/spin", nil), "user-1")
	rec := httptest.NewRecorder()

	server.handleSpin(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleSpinThenStatus_Waiting(t *testing.T) {
	server, _ := newTestServer(t)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/spin", nil), "user-1")
	rec := httptest.NewRecorder()
	server.handleSpin(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("spin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	statusReq := withUser(httptest.NewRequest(http.MethodGet, "/api/status", nil), "user-1")
	statusRec := httptest.NewRecorder()
	server.handleStatus(statusRec, statusReq)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", statusRec.Code)
	}

	var status matchcore.StatusResult
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != matchcore.StateWaiting {
		t.Fatalf("expected waiting state, got %q", status.State)
	}
}

func TestHandleVote_InvalidBody(t *testing.T) {
	server, _ := newTestServer(t)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/vote", strings.NewReader("not json")), "user-1")
	rec := httptest.NewRecorder()

	server.handleVote(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleVote_NoSuchMatch(t *testing.T) {
	server, _ := newTestServer(t)
	body := strings.NewReader(`{"match_id":"missing","vote":"yes"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/vote", body), "user-1")
	rec := httptest.NewRecorder()

	server.handleVote(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleAcknowledge_NoSuchMatch(t *testing.T) {
	server, _ := newTestServer(t)
	body := strings.NewReader(`{"match_id":"missing"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/acknowledge", body), "user-1")
	rec := httptest.NewRecorder()

	server.handleAcknowledge(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	server, _ := newTestServer(t)
	called := false
	handler := server.authMiddleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatal("next handler should not run without a token")
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run with a malformed header")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "NotBearer abc123")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	server, token := newTestServer(t)
	var seenUserID string
	handler := server.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = r.Context().Value(ctxKeyUserID).(string)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seenUserID == "" {
		t.Fatal("expected user id to be threaded into context")
	}
}

func TestHandleMe_NotFound(t *testing.T) {
	server, _ := newTestServer(t)
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), "does-not-exist")
	rec := httptest.NewRecorder()

	server.handleMe(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	server, _ := newTestServer(t)
	body := `{"email":"alice@example.com","password":"supersafe2","full_name":"Alice Again"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleRegister(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	server, _ := newTestServer(t)
	body := `{"email":"alice@example.com","password":"wrongpassword"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCorsMiddleware_PreflightShortCircuits(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight request should not reach the wrapped handler")
	})
	handler := corsMiddleware(inner)

	req := httptest.NewRequest(http.MethodOptions, "/api/spin", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS origin header to be set")
	}
}

func TestRespondError_WrapsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusTeapot, "short and stout")

	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["message"] != "short and stout" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected %d, got %d", http.StatusTeapot, rec.Code)
	}
}
