package chat

import "errors"

var (
	// ErrConversationClosed rejects messages sent after the interviewer has
	// delivered its result.
	ErrConversationClosed = errors.New("conversation is closed")

	// ErrReplyPending rejects a message while an earlier reply is still in
	// flight.
	ErrReplyPending = errors.New("a reply is still pending")
)
