package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/api"
	"github.com/charlesng35/teamseats/internal/app"
	iauth "github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/cache"
	sharedtestutil "github.com/charlesng35/teamseats/internal/database/testutil"
	"github.com/charlesng35/teamseats/internal/notify"
	"github.com/charlesng35/teamseats/pkg/response"
)

// AppURL is the public base URL the test router redirects to.
const AppURL = "http://app.test"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Config *app.Config
	Mail   *RecordingDispatcher
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{
			AppURL: AppURL,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Invitations: app.InvitationConfig{
			Expiry:     7 * 24 * time.Hour,
			TokenBytes: 16,
		},
		Dashboard: app.DashboardConfig{CacheTTL: time.Minute},
	}

	mail := &RecordingDispatcher{}
	router, err := api.NewRouter(db, jwtSvc, cfg, cache.NewDatabaseStore(db), mail)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Config: cfg,
		Mail:   mail,
	}
}

// Session describes the account a test acts as.
type Session struct {
	AccountID string
	Email     string
	Token     string
}

// NewSession mints an access token for a fresh account.
func (e *Env) NewSession() Session {
	e.T.Helper()

	id := "acct-" + uuid.NewString()
	return e.SessionFor(id, id+"@example.com")
}

// SessionFor mints an access token for the given account.
func (e *Env) SessionFor(accountID, email string) Session {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{AccountID: accountID, Email: email})
	require.NoError(e.T, err)
	return Session{AccountID: accountID, Email: email, Token: token}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Redirect parses the Location header of a redirect response.
func Redirect(t *testing.T, w *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusTemporaryRedirect, w.Code, w.Body.String())
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return location
}

// RecordingDispatcher captures notifications instead of sending them.
type RecordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

// Dispatch records n, or fails with the configured error.
func (d *RecordingDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

// Fail makes subsequent dispatches return err. A nil err restores delivery.
func (d *RecordingDispatcher) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Count reports how many notifications were delivered.
func (d *RecordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// Last returns the most recent notification.
func (d *RecordingDispatcher) Last(t *testing.T) notify.Notification {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "no notification was dispatched")
	return d.sent[len(d.sent)-1]
}

// LastToken extracts the invitation token from the most recent accept link.
func (d *RecordingDispatcher) LastToken(t *testing.T) string {
	t.Helper()
	accept, err := url.Parse(d.Last(t).AcceptURL)
	require.NoError(t, err)
	token := accept.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}
