package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registrar/internal/api/middleware"
	"registrar/internal/models"
	"registrar/internal/testutil/apptest"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newRouter(app *apptest.App) *gin.Engine {
	mw := middleware.NewAuthMiddleware(app.Auth, app.Trail)
	router := gin.New()
	router.GET("/protected", mw.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": middleware.CurrentUser(c).Username})
	})
	router.GET("/admin", mw.AuthRequired(), mw.AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/optional", mw.OptionalAuth(), func(c *gin.Context) {
		name := "anonymous"
		if user := middleware.CurrentUser(c); user != nil {
			name = user.Username
		}
		c.JSON(http.StatusOK, gin.H{"username": name})
	})
	return router
}

func TestAuthMiddleware_AuthRequired(t *testing.T) {
	app := apptest.New(t, nil)
	app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantErr    string
	}{
		{
			name: "Valid Bearer Token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+app.AccessToken(t, alice))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Valid Session Cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: app.AccessToken(t, alice)})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing Credentials",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "authentication required",
		},
		{
			name: "Invalid Authorization Header Format",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "InvalidFormat Token")
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "invalid authorization header",
		},
		{
			name: "Wrong Signing Secret",
			setup: func(r *http.Request) {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"id":   alice.ID,
					"type": "access",
					"exp":  time.Now().Add(time.Hour).Unix(),
				})
				signed, err := token.SignedString([]byte("wrong-secret"))
				require.NoError(t, err)
				r.Header.Set("Authorization", "Bearer "+signed)
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "invalid or expired token",
		},
		{
			name: "Refresh Token Rejected",
			setup: func(r *http.Request) {
				refresh, _, err := app.Auth.Tokens().IssueRefreshToken(alice)
				require.NoError(t, err)
				r.Header.Set("Authorization", "Bearer "+refresh)
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "invalid or expired token",
		},
		{
			name: "Deleted User",
			setup: func(r *http.Request) {
				ghost := &models.User{ID: 9999, Username: "ghost", Role: models.RoleStudent}
				r.Header.Set("Authorization", "Bearer "+app.AccessToken(t, ghost))
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "invalid or expired token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantErr != "" {
				var resp models.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Equal(t, tt.wantErr, resp.Error)
				return
			}
			require.JSONEq(t, `{"username":"alice"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_AdminRequired(t *testing.T) {
	app := apptest.New(t, nil)
	admin := app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)

	tests := []struct {
		name       string
		user       *models.User
		wantStatus int
	}{
		{name: "Admin", user: admin, wantStatus: http.StatusOK},
		{name: "Student", user: alice, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+app.AccessToken(t, tt.user))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}

	denied := app.Store.AuditEvents(models.EventAccessDenied)
	require.Len(t, denied, 1)
	require.Equal(t, "alice", *denied[0].Username)
	require.Equal(t, "/admin", denied[0].Resource)
	require.Equal(t, http.MethodGet, denied[0].Action)
}

func TestAuthMiddleware_OptionalAuth(t *testing.T) {
	app := apptest.New(t, nil)
	alice := app.Register(t, "alice")
	router := newRouter(app)

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"username":"anonymous"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer "+app.AccessToken(t, alice))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.JSONEq(t, `{"username":"alice"}`, w.Body.String())
}
