package telegram

// Log field name constants
const (
	LogFieldChatID = "chat_id"
)
