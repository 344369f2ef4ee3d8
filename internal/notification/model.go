package notification

import "time"

type Type string

const (
	TypeOrder    Type = "ORDER"
	TypeFeedback Type = "FEEDBACK"
	TypePayout   Type = "PAYOUT"
	TypeAdmin    Type = "ADMIN"
)

type Notification struct {
	ID        uint      `json:"id"`
	UserID    *uint     `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is an outgoing notification. A nil UserID addresses every admin.
type Message struct {
	UserID  *uint
	Title   string
	Message string
	Type    Type
}

func To(userID uint, typ Type, title, message string) Message {
	return Message{UserID: &userID, Type: typ, Title: title, Message: message}
}

func ToAdmins(title, message string) Message {
	return Message{Type: TypeAdmin, Title: title, Message: message}
}
