package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/activityagent/core"
)

// DefaultMemoryKey is the variable name BufferMemory loads history under.
const DefaultMemoryKey = "history"

// Memory is the contract the agent executor uses to read and extend a
// conversation.
type Memory interface {
	// MemoryVariables lists the keys LoadMemoryVariables returns.
	MemoryVariables() []string
	LoadMemoryVariables(ctx context.Context, inputs map[string]any) (map[string]any, error)
	SaveContext(ctx context.Context, inputs, outputs map[string]any) error
	Clear(ctx context.Context) error
}

// ErrAmbiguousKey is returned by SaveContext when the input or output key
// cannot be inferred.
var ErrAmbiguousKey = errors.New("memory: cannot infer key")

// BufferOptions configures a BufferMemory.
type BufferOptions struct {
	ChatHistory *ChatMessageHistory
	MemoryKey   string
	// ReturnMessages loads history as []core.Content instead of a transcript string.
	ReturnMessages bool
	InputKey       string
	OutputKey      string
	HumanPrefix    string
	AIPrefix       string
}

// BufferMemory keeps the whole conversation and hands it back unchanged.
type BufferMemory struct {
	opts BufferOptions
}

// NewBufferMemory creates a buffer memory. Without a ChatHistory it starts empty.
func NewBufferMemory(optFns ...func(o *BufferOptions)) *BufferMemory {
	opts := BufferOptions{
		MemoryKey:   DefaultMemoryKey,
		HumanPrefix: "Human",
		AIPrefix:    "AI",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ChatHistory == nil {
		opts.ChatHistory = NewChatMessageHistory()
	}
	return &BufferMemory{opts: opts}
}

// MemoryKey returns the key history is loaded under.
func (m *BufferMemory) MemoryKey() string { return m.opts.MemoryKey }

// ChatHistory returns the backing history.
func (m *BufferMemory) ChatHistory() *ChatMessageHistory { return m.opts.ChatHistory }

// MemoryVariables implements Memory.
func (m *BufferMemory) MemoryVariables() []string { return []string{m.opts.MemoryKey} }

// LoadMemoryVariables implements Memory.
func (m *BufferMemory) LoadMemoryVariables(_ context.Context, _ map[string]any) (map[string]any, error) {
	messages := m.opts.ChatHistory.Messages()
	if m.opts.ReturnMessages {
		return map[string]any{m.opts.MemoryKey: messages}, nil
	}
	return map[string]any{m.opts.MemoryKey: m.transcript(messages)}, nil
}

// SaveContext implements Memory by appending the input as a user message and
// the output as an assistant message.
func (m *BufferMemory) SaveContext(_ context.Context, inputs, outputs map[string]any) error {
	input, err := pick(inputs, m.opts.InputKey, m.opts.MemoryKey)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	output, err := pick(outputs, m.opts.OutputKey, "")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	m.opts.ChatHistory.AddUserMessage(input)
	m.opts.ChatHistory.AddAIMessage(output)
	return nil
}

// Clear implements Memory.
func (m *BufferMemory) Clear(_ context.Context) error {
	m.opts.ChatHistory.Clear()
	return nil
}

func (m *BufferMemory) transcript(messages []core.Content) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		prefix := msg.Role
		switch msg.Role {
		case core.RoleUser:
			prefix = m.opts.HumanPrefix
		case core.RoleAssistant:
			prefix = m.opts.AIPrefix
		case core.RoleSystem:
			prefix = "System"
		}
		lines = append(lines, prefix+": "+msg.Text())
	}
	return strings.Join(lines, "\n")
}

// pick returns values[key] or, with no key configured, the single value whose
// key is not exclude.
func pick(values map[string]any, key, exclude string) (string, error) {
	if key != "" {
		v, ok := values[key]
		if !ok {
			return "", fmt.Errorf("%w: %q not present", ErrAmbiguousKey, key)
		}
		return fmt.Sprint(v), nil
	}

	var (
		found string
		n     int
	)
	for k, v := range values {
		if k == exclude {
			continue
		}
		found = fmt.Sprint(v)
		n++
	}
	if n != 1 {
		return "", fmt.Errorf("%w: %d candidate values", ErrAmbiguousKey, n)
	}
	return found, nil
}
