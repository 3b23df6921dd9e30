package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/activityagent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeting = "Hi there! I am your productivity assistant, how can I help you today?"

func TestChatMessageHistory(t *testing.T) {
	h := NewChatMessageHistory(core.NewTextContent(core.RoleAssistant, greeting))
	h.AddUserMessage("hello")
	h.AddAIMessage("hi")

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleAssistant, msgs[0].Role)
	assert.Equal(t, greeting, msgs[0].Text())
	assert.Equal(t, core.RoleUser, msgs[1].Role)
	assert.Equal(t, "hi", msgs[2].Text())

	// returned slice is a copy
	msgs[0] = core.NewTextContent(core.RoleUser, "changed")
	assert.Equal(t, greeting, h.Messages()[0].Text())

	h.Clear()
	assert.Empty(t, h.Messages())
}

func TestChatMessageHistory_Concurrent(t *testing.T) {
	h := NewChatMessageHistory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.AddUserMessage("x")
			_ = h.Messages()
		}()
	}
	wg.Wait()

	assert.Len(t, h.Messages(), 50)
}

func TestBufferMemory_ReturnMessages(t *testing.T) {
	m := NewBufferMemory(func(o *BufferOptions) {
		o.ChatHistory = NewChatMessageHistory(core.NewTextContent(core.RoleAssistant, greeting))
		o.MemoryKey = "chat_history"
		o.ReturnMessages = true
	})

	assert.Equal(t, "chat_history", m.MemoryKey())
	assert.Equal(t, []string{"chat_history"}, m.MemoryVariables())

	vars, err := m.LoadMemoryVariables(context.Background(), nil)
	require.NoError(t, err)
	msgs, ok := vars["chat_history"].([]core.Content)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, greeting, msgs[0].Text())
}

func TestBufferMemory_Transcript(t *testing.T) {
	m := NewBufferMemory()
	require.NoError(t, m.SaveContext(context.Background(),
		map[string]any{"input": "Create an activity"},
		map[string]any{"output": "Done"},
	))

	vars, err := m.LoadMemoryVariables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Human: Create an activity\nAI: Done", vars[DefaultMemoryKey])
}

func TestBufferMemory_SaveContextKeys(t *testing.T) {
	m := NewBufferMemory(func(o *BufferOptions) {
		o.InputKey = "input"
		o.OutputKey = "output"
	})

	err := m.SaveContext(context.Background(),
		map[string]any{"input": "q", "other": 1},
		map[string]any{"output": "a", "intermediate_steps": nil},
	)
	require.NoError(t, err)
	require.Len(t, m.ChatHistory().Messages(), 2)

	err = m.SaveContext(context.Background(), map[string]any{"x": 1}, map[string]any{"output": "a"})
	assert.ErrorIs(t, err, ErrAmbiguousKey)
}

func TestBufferMemory_InferredKeyAmbiguous(t *testing.T) {
	m := NewBufferMemory()
	err := m.SaveContext(context.Background(),
		map[string]any{"a": 1, "b": 2},
		map[string]any{"output": "x"},
	)
	assert.ErrorIs(t, err, ErrAmbiguousKey)
}

func TestBufferMemory_Clear(t *testing.T) {
	m := NewBufferMemory(func(o *BufferOptions) {
		o.ChatHistory = NewChatMessageHistory(core.NewTextContent(core.RoleAssistant, greeting))
	})
	require.NoError(t, m.Clear(context.Background()))
	assert.Empty(t, m.ChatHistory().Messages())
}
