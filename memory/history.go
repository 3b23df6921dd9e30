package memory

import (
	"slices"
	"sync"

	"github.com/hupe1980/activityagent/core"
)

// ChatMessageHistory is an in-process, ordered list of conversation messages.
//
// Concurrency: protected by RWMutex.
type ChatMessageHistory struct {
	mu       sync.RWMutex
	messages []core.Content
}

// NewChatMessageHistory creates a history seeded with the given messages.
func NewChatMessageHistory(messages ...core.Content) *ChatMessageHistory {
	return &ChatMessageHistory{messages: slices.Clone(messages)}
}

// AddMessage appends a message.
func (h *ChatMessageHistory) AddMessage(msg core.Content) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// AddUserMessage appends a user text message.
func (h *ChatMessageHistory) AddUserMessage(text string) {
	h.AddMessage(core.NewTextContent(core.RoleUser, text))
}

// AddAIMessage appends an assistant text message.
func (h *ChatMessageHistory) AddAIMessage(text string) {
	h.AddMessage(core.NewTextContent(core.RoleAssistant, text))
}

// Messages returns a copy of the stored messages in order.
func (h *ChatMessageHistory) Messages() []core.Content {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.messages)
}

// Clear removes all messages.
func (h *ChatMessageHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
