package model

import "time"

// Session is a bounded-lifetime WebApp session. At most one unexpired
// session exists per user: creating a new one expires the rest.
type Session struct {
	ID        string    `json:"sessionId"`
	UserID    int64     `json:"userId"`
	InitData  string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
