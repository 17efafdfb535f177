package app

// Notification channel names.
const (
	ChannelMastodon = "mastodon"
	ChannelTelegram = "telegram"
)

// Log field name constants
const (
	LogFieldRunID   = "run_id"
	LogFieldAction  = "action"
	LogFieldActions = "actions"
	LogFieldDate    = "date"
	LogFieldDays    = "days"
	LogFieldRecords = "records"
	LogFieldFailed  = "failed"
	LogFieldStack   = "stack"
	LogFieldChannel = "channel"
)
