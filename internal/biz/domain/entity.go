package domain

// EntityKind represents the kind of a resolved conversation target
type EntityKind string

const (
	EntityUser    EntityKind = "user"
	EntityGroup   EntityKind = "group"
	EntityChannel EntityKind = "channel"
)

// Entity represents a resolved conversation target.
// Derived from provider responses, never persisted.
type Entity struct {
	ID         int64      `json:"id"`
	AccessHash int64      `json:"-"` // Needed to address users and channels, 0 for basic groups
	Name       string     `json:"displayName"`
	Username   string     `json:"username,omitempty"`
	Kind       EntityKind `json:"kind"`
}

// Dialog represents a provider-side conversation summary carrying an unread counter
type Dialog struct {
	Entity      Entity `json:"entity"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unreadCount"`
}
