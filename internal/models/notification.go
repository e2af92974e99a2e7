package models

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a one-shot message for the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}
