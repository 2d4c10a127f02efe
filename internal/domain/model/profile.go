package model

import "time"

// Profile is the one-to-one companion record of a user. Any content edit
// drops IsApproved back to false until a moderator approves it again.
type Profile struct {
	UserID     int64     `json:"userId"`
	Nickname   string    `json:"nickname"`
	Age        int       `json:"age"`
	Telegram   string    `json:"telegram"`
	Skills     string    `json:"skills"`
	IsApproved bool      `json:"isApproved"`
	LastEdited time.Time `json:"lastEdited"`
	CreatedAt  time.Time `json:"createdAt"`
}
