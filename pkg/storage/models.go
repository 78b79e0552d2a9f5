package storage

import (
	"time"
)

type Link struct {
	Token      string    `json:"token" bson:"token" db:"token"`
	LongURL    string    `json:"url" bson:"url" db:"url"`
	OwnerID    string    `json:"owner_id" bson:"userid" db:"owner_id"`
	ClickCount int64     `json:"click_count" bson:"clickcount" db:"click_count"`
	CreatedAt  time.Time `json:"created_at" bson:"createtime" db:"created_at"`
}

type User struct {
	UserID       string    `json:"userid" bson:"userid" db:"user_id"`
	Name         string    `json:"name" bson:"name" db:"name"`
	Email        string    `json:"email" bson:"email" db:"email"`
	PasswordHash string    `json:"-" bson:"pwdhash" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"createtime" db:"created_at"`
}
