package models

// User is a registered account. Username is the primary identity and never changes.
type User struct {
	Username     string `json:"username" db:"username"`
	DisplayName  string `json:"name" db:"name"`
	PasswordHash string `json:"-" db:"passhash"` // digest computed by the caller, never serialized
}

// Message is a link sent from one user to another.
type Message struct {
	ID       int64  `json:"id" db:"id"`
	FromUser string `json:"from" db:"from_user"`
	ToUser   string `json:"to" db:"to_user"`
	Body     string `json:"link" db:"link"`
	SentAt   int64  `json:"datetime" db:"datetime"` // unix seconds, set by the store
	Archived bool   `json:"archived" db:"archived"`
}
