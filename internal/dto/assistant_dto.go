package dto

// AssistantMessage is one turn of the assistant conversation.
type AssistantMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// AssistantChatRequest starts a streamed assistant completion. Language and
// mode select the system prompt; both default server-side when omitted.
type AssistantChatRequest struct {
	Messages []AssistantMessage `json:"messages" validate:"required,min=1,dive"`
	Language string             `json:"language" validate:"omitempty,oneof=en fr ar es"`
	Mode     string             `json:"mode" validate:"omitempty,oneof=rules rights guidance"`
}
