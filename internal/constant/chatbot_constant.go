package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	ChatSessionDefaultTitle = "Unnamed session"
	ChatSessionTitleMaxLen  = 60
)

// Event bus topics and NATS subjects.
const (
	TopicTurnEvents        = "chat.turn.events"
	EventTurnCompleted     = "turn.completed"
	EventTurnAbandoned     = "turn.abandoned"
	EventTurnFailed        = "turn.failed"
	EventFeedbackReceived  = "feedback.received"
	EventPromptUpdated     = "prompt.updated"
	NatsDurablePromptCache = "prompt-cache-invalidator"
)
