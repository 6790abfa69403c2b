package chat

import "time"

// User identifies the author of a message.
type User struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar"`
}

// AssistantUser is the identity assistant replies are written under.
var AssistantUser = User{
	ID:        "SpeechGPT",
	Name:      "SpeechGPT",
	AvatarURL: "https://ui-avatars.com/api/?name=SpeechGPT",
}

// Message is one turn of dialogue. Immutable once written; CreatedAt is
// assigned by the server on append.
type Message struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	User       User      `json:"user"`
	ThumbsUp   bool      `json:"thumbsUp"`
	ThumbsDown bool      `json:"thumbsDown"`
}
