package llm

// Role indicates the originator of a message.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
	ToolRole  Role = "tool"
)

// ToolCall is a request from the model to invoke a named tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single entry in a conversation. Name attributes assistant
// messages to the agent that produced them; it is empty on user and system
// messages.
type Message struct {
	Role       Role        `json:"role"`
	Name       string      `json:"name,omitempty"`
	Content    string      `json:"content"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// NewUserMessage creates a user message with the given text.
func NewUserMessage(text string) *Message {
	return &Message{Role: User, Content: text}
}

// NewSystemMessage creates a system message with the given text.
func NewSystemMessage(text string) *Message {
	return &Message{Role: System, Content: text}
}

// NewAssistantMessage creates an assistant message attributed to the named
// agent.
func NewAssistantMessage(name, text string) *Message {
	return &Message{Role: Assistant, Name: name, Content: text}
}

// NewToolResultMessage creates a tool result message for the given call.
func NewToolResultMessage(callID, content string) *Message {
	return &Message{Role: ToolRole, ToolCallID: callID, Content: content}
}

// Copy returns a deep copy of the message.
func (m *Message) Copy() *Message {
	dup := *m
	if len(m.ToolCalls) > 0 {
		dup.ToolCalls = make([]*ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			tcCopy := *tc
			dup.ToolCalls[i] = &tcCopy
		}
	}
	return &dup
}
