package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lumahub/luma-core/internal/access"
	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/auth"
	"github.com/lumahub/luma-core/internal/device"
	"github.com/lumahub/luma-core/internal/infrastructure/config"
	"github.com/lumahub/luma-core/internal/infrastructure/database"
	"github.com/lumahub/luma-core/internal/infrastructure/logging"
	_ "github.com/lumahub/luma-core/migrations" // registers embedded migrations
)

// testPassword is the password for every account seeded by test helpers.
const testPassword = "correct-horse-battery"

// testJWTSecret is a fixed signing secret for tests.
const testJWTSecret = "test-secret-key-at-least-32-chars!"

// recordingPublisher captures published commands instead of hitting a broker.
type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

// testEnv bundles a server, its router, and direct repository handles so
// tests can both drive the HTTP surface and inspect state underneath it.
type testEnv struct {
	server    *Server
	router    http.Handler
	users     auth.UserRepository
	authority *access.Authority
	registry  *device.Registry
	publisher *recordingPublisher
}

// newTestEnv builds a server over a temp-file SQLite database with the full
// schema applied. The HTTP listener is never started; tests exercise the
// router directly.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "luma-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	authority := access.NewAuthority(access.NewSQLiteRepository(db.DB), registry)
	users := auth.NewUserRepository(db.DB)
	tokens := auth.NewTokenRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	publisher := &recordingPublisher{}

	server, err := New(Deps{
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:          testJWTSecret,
				AccessTokenTTL:  15,
				RefreshTokenTTL: 60,
			},
		},
		Logger:    logging.Default(),
		Registry:  registry,
		Authority: authority,
		Users:     users,
		Tokens:    tokens,
		Audit:     auditRepo,
		Publisher: publisher,
		QoS:       1,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("creating test server: %v", err)
	}

	return &testEnv{
		server:    server,
		router:    server.buildRouter(),
		users:     users,
		authority: authority,
		registry:  registry,
		publisher: publisher,
	}
}

// seedUser creates an active account with testPassword and returns it.
func (e *testEnv) seedUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	user := &auth.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return user
}

// login performs a real login request and returns the decoded response.
func (e *testEnv) login(t *testing.T, username, password string) loginResponse {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		loginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login for %s = %d, want 200 (body: %s)", username, rec.Code, rec.Body.String())
	}

	var resp loginResponse
	decodeBody(t, rec, &resp)
	return resp
}

// token seeds nothing; it logs the given seeded user in and returns a
// bearer token for authenticated requests.
func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	return e.login(t, username, testPassword).AccessToken
}

// request performs an HTTP request against the router. An empty token sends
// the request unauthenticated; a nil body sends no payload.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// registerDevice registers a device over the API as the given token's user.
func (e *testEnv) registerDevice(t *testing.T, token, id, name, typ string) {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/api/v1/devices", token,
		registerDeviceRequest{ID: id, Name: name, Type: typ})
	if rec.Code != http.StatusCreated {
		t.Fatalf("registering device %s = %d, want 201 (body: %s)", id, rec.Code, rec.Body.String())
	}
}

// shareDevice shares a device with another seeded user over the API.
// target is a username; the helper resolves it to an ID.
func (e *testEnv) shareDevice(t *testing.T, token, deviceID, target, role string) {
	t.Helper()

	user, err := e.users.GetByUsername(context.Background(), target)
	if err != nil {
		t.Fatalf("resolving share target %s: %v", target, err)
	}

	rec := e.request(t, http.MethodPost, "/api/v1/devices/"+deviceID+"/share", token,
		shareRequest{UserID: user.ID, Role: role})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sharing %s with %s = %d, want 201 (body: %s)", deviceID, target, rec.Code, rec.Body.String())
	}
}

// decodeBody decodes a recorder's JSON body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response body: %v (body: %s)", err, rec.Body.String())
	}
}
