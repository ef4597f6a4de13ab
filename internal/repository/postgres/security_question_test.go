package postgres_test

import (
	"context"
	"testing"

	"registrar/internal/models"
	"registrar/internal/repository"
	"registrar/internal/repository/postgres"

	"github.com/stretchr/testify/require"
)

func TestSecurityQuestionRepository(t *testing.T) {
	conn := setupDB(t)
	repo := postgres.NewSecurityQuestionRepository(conn)
	ctx := context.Background()
	user := createUser(t, conn, "judy")

	catalog, err := repo.ListCatalog(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(catalog), 3)

	answers := []models.UserSecurityAnswer{
		{QuestionID: catalog[0].ID, AnswerHash: "a"},
		{QuestionID: catalog[1].ID, AnswerHash: "b"},
		{QuestionID: catalog[2].ID, AnswerHash: "c"},
	}
	require.NoError(t, repo.CreateAnswers(ctx, user.ID, answers))
	for _, a := range answers {
		require.NotZero(t, a.ID)
	}

	count, err := repo.CountAnswers(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	questions, err := repo.ListUserQuestions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	require.Equal(t, answers[0].ID, questions[0].ID)
	require.Equal(t, catalog[0].QuestionText, questions[0].QuestionText)

	duplicate := []models.UserSecurityAnswer{{QuestionID: catalog[0].ID, AnswerHash: "d"}}
	require.ErrorIs(t, repo.CreateAnswers(ctx, user.ID, duplicate), repository.ErrAnswersExist)

	deleted, err := repo.DeleteAnswers(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	stored, err := repo.ListAnswers(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, stored)
}
