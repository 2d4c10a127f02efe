package model

import (
	"time"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
)

type User struct {
	ID           int64      `json:"id"`
	TelegramID   int64      `json:"telegramId"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Avatar       string     `json:"avatar"`
	LanguageCode string     `json:"languageCode"`
	IsPremium    bool       `json:"isPremium"`
	Role         enums.Role `json:"role"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserRef is the subset of user fields embedded into moderation
// notifications and RPC responses.
type UserRef struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegramId"`
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

func (u UserRef) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Anonymous"
}
