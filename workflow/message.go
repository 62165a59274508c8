package workflow

import "strings"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolRetriever is the tool identifier carried by retrieval directives.
const ToolRetriever = "retriever"

// Directive marks a message as a routing instruction rather than text meant
// for the user. It replaces free-text markers like "TOOL: retriever||query"
// with an explicit discriminant and a typed payload.
type Directive struct {
	Tool  string
	Query string
}

// Message is one entry in a conversation's turn history. Messages are
// immutable once appended; the orchestrator never reorders or merges them.
type Message struct {
	Role      Role
	Content   string
	Directive *Directive
}

// IsDirective reports whether m carries a routing instruction.
func (m Message) IsDirective() bool {
	return m.Directive != nil
}

// DirectiveQuery returns the retrieval payload carried by m. A directive with
// an empty query is treated as having no payload and the raw content is used
// as the query instead, so a malformed directive can never stall the graph.
func (m Message) DirectiveQuery() string {
	if m.Directive != nil {
		if q := strings.TrimSpace(m.Directive.Query); q != "" {
			return q
		}
	}
	return strings.TrimSpace(m.Content)
}

// State is the unit of work flowing through the graph for one conversation
// turn. It is exclusively owned by one Run invocation for the duration of
// that turn.
type State struct {
	threadID  string
	messages  []Message
	turnStart int // index of the first message of the current turn

	// set by the retriever node; the context the generator answered from
	retrievedContext string
	rewrites         int
}

func newState(threadID string, history []Message) *State {
	st := &State{threadID: threadID}
	st.messages = append(st.messages, history...)
	st.turnStart = len(st.messages)
	return st
}

// Append adds a message to the end of the history. New messages are always
// appended, never merged or deduplicated.
func (s *State) Append(m Message) {
	s.messages = append(s.messages, m)
}

// Question returns the question of record for the current turn: the first
// message appended this turn. It stays stable as the latest slot advances.
func (s *State) Question() string {
	if s.turnStart >= len(s.messages) {
		return ""
	}
	return s.messages[s.turnStart].Content
}

// Latest returns the most recent message.
func (s *State) Latest() Message {
	if len(s.messages) == 0 {
		return Message{}
	}
	return s.messages[len(s.messages)-1]
}

// History returns a copy of the full message history, earlier turns included.
func (s *State) History() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ThreadID returns the opaque identifier grouping this turn's conversation.
func (s *State) ThreadID() string {
	return s.threadID
}
