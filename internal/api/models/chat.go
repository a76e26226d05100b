package models

// ChatContext is the farm context sent with a chat message.
type ChatContext struct {
	State      string  `json:"state,omitempty"`
	Soil       string  `json:"soil,omitempty"`
	LandArea   float64 `json:"landArea,omitempty"`
	Irrigation string  `json:"irrigation,omitempty"`
	Fertilizer string  `json:"fertilizer,omitempty"`
}

// ChatSession is the response of POST /v1/chat/sessions.
type ChatSession struct {
	SessionID      string    `json:"sessionId"`
	WelcomeMessage string    `json:"welcomeMessage"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// ChatMessageRequest is the body of POST /v1/chat/sessions/{sessionId}/messages.
type ChatMessageRequest struct {
	Message string       `json:"message"`
	Context *ChatContext `json:"context,omitempty"`
}

// ChatMessageResponse is the advisor's reply.
type ChatMessageResponse struct {
	SessionID          string    `json:"sessionId"`
	Response           string    `json:"response"`
	AgricultureRelated bool      `json:"agricultureRelated"`
	Timestamp          Timestamp `json:"timestamp"`
}
