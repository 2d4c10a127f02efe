package model

import (
	"time"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
)

type Question struct {
	ID           int64                `json:"id"`
	UserID       int64                `json:"userId"`
	Question     string               `json:"question"`
	Answer       *string              `json:"answer"`
	IsPrivate    bool                 `json:"isPrivate"`
	Status       enums.QuestionStatus `json:"status"`
	AnsweredByID *int64               `json:"answeredById"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}
