package models

import "time"

// SecurityQuestion is an entry of the fixed question catalog
type SecurityQuestion struct {
	ID           int64  `json:"id"`
	QuestionText string `json:"question_text"`
}

// UserSecurityAnswer binds a catalog question to a user's hashed answer
type UserSecurityAnswer struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	AnswerHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserQuestion is a configured question as presented during recovery.
// ID is the answer id the caller echoes back with the answer text.
type UserQuestion struct {
	ID           int64  `json:"id"`
	QuestionID   int64  `json:"question_id"`
	QuestionText string `json:"question_text"`
}

// SecurityAnswerInput is one answer supplied when configuring questions
type SecurityAnswerInput struct {
	QuestionID int64  `json:"question_id" binding:"required,gt=0"`
	AnswerText string `json:"answer_text" binding:"required,max=255"`
}

// RecoveryAnswer is one answer supplied during recovery
type RecoveryAnswer struct {
	AnswerID   int64  `json:"answer_id" binding:"required,gt=0"`
	AnswerText string `json:"answer_text" binding:"required,max=255"`
}

// ConfigureSecurityQuestionsRequest represents the one-time question setup
type ConfigureSecurityQuestionsRequest struct {
	Answers []SecurityAnswerInput `json:"answers" binding:"required,min=3,dive"`
}

// ForgotPasswordRequest starts the recovery flow for a username
type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required,max=50"`
}

// ResetPasswordRequest completes the recovery flow
type ResetPasswordRequest struct {
	Username    string           `json:"username" binding:"required,max=50"`
	Answers     []RecoveryAnswer `json:"answers" binding:"required,min=1,dive"`
	NewPassword string           `json:"new_password" binding:"required,max=128"`
}
