package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message of a conversation. Turns are never modified after creation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Content: content}
}

type Answer struct {
	Text     string
	Sources  []string
	Language Language
}
