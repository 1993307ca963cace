package subscriber

// Subscriber is one registered end-user of the notification bot.
//
// ID (the map key in the store) is the chat platform's stable user id,
// stringified. UserID/ChatID are immutable after registration; everything
// else is mutated through Store.Update.
type Subscriber struct {
	UserID          int64   `json:"user_id"`
	ChatID          int64   `json:"chat_id"`
	Username        string  `json:"username"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	StatusMessageID *int    `json:"status_message_id"`
	Active          bool    `json:"active"`
}

// FormatPhone renders a stored 10-digit phone as XXX-XXX-XXXX.
// Storage keeps digits only; formatting is display-time only.
func FormatPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}
