package requests

import "strings"

// SendMessageRequest is the send-message body. Older clients post the
// text under "textMessage", newer ones under "text"; both are accepted.
type SendMessageRequest struct {
	TextMessage string `json:"textMessage"`
	Text        string `json:"text"`
}

// Content returns the message text regardless of which field carried it.
func (r *SendMessageRequest) Content() string {
	if strings.TrimSpace(r.TextMessage) != "" {
		return r.TextMessage
	}
	return r.Text
}
