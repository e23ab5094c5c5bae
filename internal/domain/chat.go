package domain

// Classification is the label the classifier prompt asks the model to return.
// Labels are stored exactly as the model produced them.
type Classification string

const (
	ProfessorSpecific  Classification = "Professor-Specific"
	CasualConversation Classification = "Casual Conversation"
)

// ConversationTurn is one classified inbound message.
type ConversationTurn struct {
	Message        string
	Classification Classification
}

// EmbeddingVector is the numeric representation of a single message.
type EmbeddingVector []float32

// SearchMatch is one professor review returned by the similarity index.
type SearchMatch struct {
	ID      string
	Review  string
	Subject string
	Stars   float64
	Score   float32
}
