package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/app"
	"github.com/upb/travel-control-plane/config"
	"github.com/upb/travel-control-plane/internal/auth"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories/postgres"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Version:     "1.2.3",
		Auth: config.AuthConfig{
			Secret:   testSecret,
			Issuer:   "travel-control-plane",
			Audience: "travel-api",
			TokenTTL: time.Hour,
		},
		PolicyCache: config.PolicyCacheConfig{MaxSize: 10, TTL: time.Minute, CleanupInterval: time.Minute},
		Audit:       config.AuditConfig{BufferSize: 16, Workers: 1, WriteTimeout: time.Second},
		Booking:     config.BookingConfig{DefaultCurrency: "USD"},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://travel.example.com"}, MaxAge: 300},
	}
}

func newRouter(t *testing.T, cfg *config.Config) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	factory := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), logger)
	deps := app.NewDependenciesFromFactory(cfg, factory, logger)
	return SetupRoutes(deps), mock
}

func signedToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := auth.NewIssuer(auth.Config{
		Secret:   []byte(testSecret),
		Issuer:   "travel-control-plane",
		Audience: "travel-api",
		TTL:      time.Hour,
	}).Issue(user)
	require.NoError(t, err)
	return token
}

func expectUserLookup(mock sqlmock.Sqlmock, u *models.User) {
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM users WHERE subject = \$1`).
		WithArgs(u.Subject).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "subject", "company_id", "role", "manager_id", "created_at", "updated_at",
		}).AddRow(u.ID.String(), u.Email, u.Name, u.Subject, u.CompanyID.String(), string(u.Role), nil, now, now))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	router, mock := newRouter(t, testConfig())

	t.Run("liveness", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("readiness pings the database", func(t *testing.T) {
		mock.ExpectPing()
		mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		w := serve(router, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Service string `json:"service"`
				Version string `json:"version"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "travel-control-plane", body.Data.Service)
		assert.Equal(t, "1.2.3", body.Data.Version)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "endpoint not found")
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Contains(t, w.Body.String(), "method_not_allowed")
	})

	t.Run("token endpoint hidden by default", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/auth/token", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("cors preflight for an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
		req.Header.Set("Origin", "https://travel.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := serve(router, req)
		assert.Equal(t, "https://travel.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestProtectedRoutes(t *testing.T) {
	companyID := uuid.New()
	employee := models.NewUser("ana@acme.test", "Ana", companyID, models.RoleEmployee)
	employee.Subject = "auth0|ana"

	t.Run("missing token", func(t *testing.T) {
		router, _ := newRouter(t, testConfig())
		for _, path := range []string{"/api/v1/bookings", "/api/v1/approvals", "/api/v1/users/me", "/api/v1/policies/active", "/api/v1/expenses"} {
			w := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		}
	})

	t.Run("current user", func(t *testing.T) {
		router, mock := newRouter(t, testConfig())
		expectUserLookup(mock, employee)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, employee))
		w := serve(router, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data models.User `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, employee.ID, body.Data.ID)
		assert.Equal(t, models.RoleEmployee, body.Data.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("employee cannot read the audit trail", func(t *testing.T) {
		router, mock := newRouter(t, testConfig())
		expectUserLookup(mock, employee)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, employee))
		w := serve(router, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("employee cannot write policies", func(t *testing.T) {
		router, mock := newRouter(t, testConfig())
		expectUserLookup(mock, employee)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/policies/"+uuid.NewString(), nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, employee))
		w := serve(router, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("employee lists only own expenses", func(t *testing.T) {
		router, mock := newRouter(t, testConfig())
		expectUserLookup(mock, employee)
		mock.ExpectQuery(`FROM expenses\s+WHERE company_id = \$1 AND user_id = \$2`).
			WithArgs(companyID, employee.ID, 50, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, employee))
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDevTokenRoute(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.DevTokens = true
	router, mock := newRouter(t, cfg)

	admin := models.NewUser("lead@acme.test", "Lead", uuid.New(), models.RoleTravelAdmin)
	admin.Subject = "auth0|lead"
	expectUserLookup(mock, admin)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"subject":"auth0|lead"}`))
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Bearer", body.Data.TokenType)

	claims, err := auth.NewValidator(auth.Config{
		Secret:   []byte(testSecret),
		Issuer:   "travel-control-plane",
		Audience: "travel-api",
	}).ValidateToken(req.Context(), body.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "auth0|lead", claims.Subject)
	assert.Equal(t, models.RoleTravelAdmin, claims.Role)
}
