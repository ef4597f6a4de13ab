package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"registrar/internal/models"
	"registrar/internal/testutil/apptest"

	"github.com/stretchr/testify/require"
)

func TestAuthHandler_SecurityQuestionRecovery(t *testing.T) {
	app := apptest.New(t, nil)
	alice := app.Register(t, "alice")
	router := newRouter(app)
	token := app.AccessToken(t, alice)

	w := doJSON(t, router, http.MethodGet, "/api/v1/auth/security-questions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var catalog models.SecurityQuestionCatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	require.GreaterOrEqual(t, len(catalog.Questions), 3)

	// Recovery is unavailable until questions are configured
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Username: "alice"}, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	unconfigured := w.Body.String()
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Username: "nobody"}, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, unconfigured, w.Body.String())

	configure := models.ConfigureSecurityQuestionsRequest{Answers: []models.SecurityAnswerInput{
		{QuestionID: catalog.Questions[0].ID, AnswerText: "Rex"},
		{QuestionID: catalog.Questions[1].ID, AnswerText: "Springfield"},
		{QuestionID: catalog.Questions[2].ID, AnswerText: "Smith"},
	}}
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/security-questions", configure, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/security-questions", configure, token)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/security-questions", configure, token)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Username: "alice"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var questions models.UserQuestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &questions))
	require.Len(t, questions.Questions, 3)
	require.NotContains(t, w.Body.String(), "Rex")

	answers := map[int64]string{
		catalog.Questions[0].ID: "rex",
		catalog.Questions[1].ID: "  SPRINGFIELD ",
		catalog.Questions[2].ID: "smith",
	}
	reset := models.ResetPasswordRequest{Username: "alice", NewPassword: "Gl4cier#Meadow!"}
	for _, q := range questions.Questions {
		reset.Answers = append(reset.Answers, models.RecoveryAnswer{AnswerID: q.ID, AnswerText: answers[q.QuestionID]})
	}

	wrong := reset
	wrong.Answers = append([]models.RecoveryAnswer(nil), reset.Answers...)
	wrong.Answers[0].AnswerText = "fido"
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password", wrong, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid credentials or answers"}`, w.Body.String())

	unknown := reset
	unknown.Username = "nobody"
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password", unknown, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid credentials or answers"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password", reset, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Username: "alice", Password: apptest.Password}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Username: "alice", Password: "Gl4cier#Meadow!"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	changes := app.Store.AuditEvents(models.EventPasswordChange)
	require.Len(t, changes, 1)
	require.Equal(t, "/api/v1/auth/reset-password", changes[0].Resource)
}
