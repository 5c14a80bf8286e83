package telegram

import "time"

// Kind represents the kind of a Telegram peer
type Kind string

const (
	KindUser    Kind = "user"
	KindGroup   Kind = "group"
	KindChannel Kind = "channel"
)

// Entity represents a resolved Telegram peer
type Entity struct {
	ID         int64
	AccessHash int64 // 0 for basic groups
	Name       string
	Username   string
	Kind       Kind
}

// Dialog represents one entry of the account's dialog list
type Dialog struct {
	Entity      Entity
	Title       string
	UnreadCount int
}

// Message represents a fetched message
type Message struct {
	ID          int
	Date        time.Time // Second granularity, as reported by Telegram
	SenderID    int64
	SenderLabel string
	Text        string
	Out         bool // True when sent by the account itself
}
