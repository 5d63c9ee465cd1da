package models

import "time"

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(255);uniqueIndex;not null"`
	Messages  []Message `json:"-" gorm:"foreignKey:UserID"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// Message is a text addressed to a single user. ExpirationDate only ever moves
// backwards: a listing resets it to the read time.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Text           string    `json:"text" gorm:"type:text;not null"`
	UserID         uint      `json:"-" gorm:"index:idx_messages_user_expiration;not null"`
	Owner          *User     `json:"-" gorm:"foreignKey:UserID"`
	ExpirationDate time.Time `json:"expiration_date" gorm:"index:idx_messages_user_expiration;not null"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (Message) TableName() string { return "messages" }

// MessageDetail is what a direct lookup by id returns.
type MessageDetail struct {
	Username       string    `json:"username"`
	Text           string    `json:"text"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// MessageSummary is one entry of a user's listing.
type MessageSummary struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
