package handlers_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"registrar/internal/models"
	"registrar/internal/testutil/apptest"

	"github.com/stretchr/testify/require"
)

func TestAdminHandler_AuditLogs(t *testing.T) {
	app := apptest.New(t, nil)
	admin := app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)

	for _, username := range []string{"alice", "nobody"} {
		w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
			models.LoginRequest{Username: username, Password: "Wrong#Guess1990"}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	token := app.AccessToken(t, admin)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTotal  int64
	}{
		{name: "By Event Type", query: "?event_type=AUTH_FAILURE", wantStatus: http.StatusOK, wantTotal: 2},
		{name: "By Username", query: "?event_type=AUTH_FAILURE&username=nobody", wantStatus: http.StatusOK, wantTotal: 1},
		{name: "By User ID", query: "?event_type=AUTH_FAILURE&user_id=" + strconv.FormatInt(alice.ID, 10), wantStatus: http.StatusOK, wantTotal: 1},
		{name: "By IP", query: "?event_type=AUTH_FAILURE&ip_address=198.51.100.1", wantStatus: http.StatusOK, wantTotal: 0},
		{name: "Several Types", query: "?event_type=AUTH_FAILURE,ACCOUNT_CREATED", wantStatus: http.StatusOK, wantTotal: 4},
		{name: "Unknown Type", query: "?event_type=LOGIN", wantStatus: http.StatusBadRequest},
		{name: "Limit Too Large", query: "?limit=1000", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs"+tt.query, nil, token)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp models.AuditLogListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tt.wantTotal, resp.Total)
			require.Len(t, resp.Logs, int(tt.wantTotal))
			require.Equal(t, 50, resp.Limit)
		})
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs/stats", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.AuditStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(2), stats.ByEventType["AUTH_FAILURE"])
	require.Equal(t, int64(2), stats.ByEventType["ACCOUNT_CREATED"])
	require.Contains(t, stats.ByEventType, "ROLE_CHANGE")
	require.Zero(t, stats.ByEventType["ROLE_CHANGE"])
}

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	app := apptest.New(t, nil)
	app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs", nil, app.AccessToken(t, alice))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error":"admin access required"}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	denied := app.Store.AuditEvents(models.EventAccessDenied)
	require.Len(t, denied, 1)
	require.Equal(t, "/api/v1/admin/audit-logs", denied[0].Resource)
}

func TestAdminHandler_ChangeRole(t *testing.T) {
	app := apptest.New(t, nil)
	admin := app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)
	token := app.AccessToken(t, admin)
	path := "/api/v1/admin/users/" + strconv.FormatInt(alice.ID, 10) + "/role"

	w := doJSON(t, router, http.MethodPut, path, models.ChangeRoleRequest{Role: models.RoleFaculty}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, models.RoleFaculty, updated.Role)

	// The next request sees the new role without a new token
	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, app.AccessToken(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"faculty"`)

	tests := []struct {
		name       string
		path       string
		role       models.Role
		wantStatus int
	}{
		{name: "Unknown Role", path: path, role: "dean", wantStatus: http.StatusBadRequest},
		{name: "Bad ID", path: "/api/v1/admin/users/abc/role", role: models.RoleStudent, wantStatus: http.StatusBadRequest},
		{name: "Missing User", path: "/api/v1/admin/users/9999/role", role: models.RoleStudent, wantStatus: http.StatusNotFound},
		{name: "Self Demotion", path: "/api/v1/admin/users/" + strconv.FormatInt(admin.ID, 10) + "/role", role: models.RoleStudent, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPut, tt.path, models.ChangeRoleRequest{Role: tt.role}, token)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = doJSON(t, router, http.MethodPatch, path, models.ChangeRoleRequest{Role: models.RoleStudent}, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"student"`)

	require.Len(t, app.Store.AuditEvents(models.EventRoleChange), 2)
}

func TestAdminHandler_ResetSecurityQuestions(t *testing.T) {
	app := apptest.New(t, nil)
	admin := app.Register(t, "root")
	alice := app.Register(t, "alice")
	router := newRouter(app)

	catalog := app.Store.Catalog()
	configure := models.ConfigureSecurityQuestionsRequest{Answers: []models.SecurityAnswerInput{
		{QuestionID: catalog[0].ID, AnswerText: "Rex"},
		{QuestionID: catalog[1].ID, AnswerText: "Springfield"},
		{QuestionID: catalog[2].ID, AnswerText: "Smith"},
	}}
	aliceToken := app.AccessToken(t, alice)
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/security-questions", configure, aliceToken)
	require.Equal(t, http.StatusCreated, w.Code)

	path := "/api/v1/admin/users/" + strconv.FormatInt(alice.ID, 10) + "/security-questions"
	w = doJSON(t, router, http.MethodDelete, path, nil, app.AccessToken(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"answers_deleted":3}`, w.Body.String())

	// Alice can configure again
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/security-questions", configure, aliceToken)
	require.Equal(t, http.StatusCreated, w.Code)
}
