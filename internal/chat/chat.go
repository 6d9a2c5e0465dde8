// Package chat defines the boundary between the game core and the
// chat platform.
//
// The core consumes an inbound stream of messages and a per-channel
// sending capability. It never talks to the platform API directly, so
// games can run against any transport that satisfies these contracts,
// including the in-memory fakes used in tests.
package chat

// Message is a single inbound chat event.
type Message struct {
	// User is the transport-stable identifier of the sender.
	User string
	// Channel identifies where the message was posted. Private
	// channels are used to scope per-player listening.
	Channel string
	// Text is the raw message body.
	Text string
}

// User identifies a chat platform member.
type User struct {
	ID   string
	Name string
}

// Post is a formatted message with an optional color accent and
// banner framing for game-start and game-end announcements.
type Post struct {
	Text     string
	Color    string
	Pretext  string
	ThumbURL string
}

// Sender delivers outbound messages. Delivery is best-effort; the
// game never retries a failed send.
type Sender interface {
	// Send posts plain text to a channel.
	Send(channelID, text string) error
	// PostMessage posts a formatted message to a channel.
	PostMessage(channelID string, post Post) error
}
