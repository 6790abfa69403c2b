package chat

import "time"

// Chat owns an ordered collection of messages scoped to one user.
type Chat struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"userEmail"`
	CreatedAt time.Time `json:"createdAt"`
}
