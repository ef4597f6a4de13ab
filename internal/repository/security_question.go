package repository

import (
	"context"
	"registrar/internal/models"
)

// SecurityQuestionRepository defines the interface for the question catalog
// and per-user hashed answers
type SecurityQuestionRepository interface {
	Repository
	ListCatalog(ctx context.Context) ([]models.SecurityQuestion, error)
	ListUserQuestions(ctx context.Context, userID int64) ([]models.UserQuestion, error)
	ListAnswers(ctx context.Context, userID int64) ([]models.UserSecurityAnswer, error)
	CountAnswers(ctx context.Context, userID int64) (int, error)
	CreateAnswers(ctx context.Context, userID int64, answers []models.UserSecurityAnswer) error
	DeleteAnswers(ctx context.Context, userID int64) (int64, error)
}
