package domain

// Response is an outbound chat-channel message. A non-nil Err replaces Text
// with an apology in the user's language.
type Response struct {
	ChatID           int64
	ReplyToMessageID int
	Text             string
	Language         Language
	Err              error
}
