package history

import (
	"context"
	"testing"

	"knowledge-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(role llm.Role, parts ...string) llm.Turn {
	t := llm.Turn{Role: role}
	for _, p := range parts {
		t.Parts = append(t.Parts, llm.TextPart(p))
	}
	return t
}

func TestMerge(t *testing.T) {
	in := []llm.Turn{
		turn(llm.RoleUser, "a"),
		turn(llm.RoleUser, "b", "c"),
		turn(llm.RoleAssistant, "d"),
		turn(llm.RoleAssistant, "e"),
		turn(llm.RoleUser, "f"),
	}

	out := Merge(in)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, texts(out[0]))
	assert.Equal(t, []string{"d", "e"}, texts(out[1]))
	assert.Equal(t, []string{"f"}, texts(out[2]))

	// input untouched
	assert.Len(t, in[0].Parts, 1)
}

func TestMergeNoAdjacentSameRole(t *testing.T) {
	roles := []llm.Role{llm.RoleUser, llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant, llm.RoleAssistant, llm.RoleAssistant}
	var in []llm.Turn
	for _, r := range roles {
		in = append(in, turn(r, "x"))
	}

	out := Merge(in)
	for i := 1; i < len(out); i++ {
		assert.NotEqual(t, out[i-1].Role, out[i].Role)
	}
	assert.Empty(t, Merge(nil))
}

func TestTrimLeading(t *testing.T) {
	assert.Nil(t, TrimLeading(nil))
	assert.Nil(t, TrimLeading([]llm.Turn{turn(llm.RoleAssistant, "x")}))

	out := TrimLeading([]llm.Turn{
		turn(llm.RoleAssistant, "x"),
		turn(llm.RoleUser, "y"),
		turn(llm.RoleAssistant, "z"),
	})
	require.Len(t, out, 2)
	assert.Equal(t, llm.RoleUser, out[0].Role)
}

func TestReconcileExamples(t *testing.T) {
	n := newTestNormalizer(t, nil)

	t.Run("leading assistant trimmed and users merged", func(t *testing.T) {
		out := n.Reconcile(context.Background(), []Entry{
			Structured("assistant", "hi"),
			Structured("user", "hello"),
			Structured("user", "and more"),
			Structured("assistant", "ok"),
		})
		require.Len(t, out, 2)
		assert.Equal(t, llm.RoleUser, out[0].Role)
		assert.Equal(t, []string{"hello", "and more"}, texts(out[0]))
		assert.Equal(t, llm.RoleAssistant, out[1].Role)
		assert.Equal(t, []string{"ok"}, texts(out[1]))
	})

	t.Run("no user turn left", func(t *testing.T) {
		out := n.Reconcile(context.Background(), []Entry{
			Structured("user", ""),
			Structured("assistant", "hi"),
		})
		assert.Empty(t, out)
	})

	t.Run("user user assistant gives two turns", func(t *testing.T) {
		out := n.Reconcile(context.Background(), []Entry{
			Mapping("user", "one"),
			Structured("user", "two"),
			Mapping("model", "three"),
		})
		require.Len(t, out, 2)
		assert.Equal(t, []string{"one", "two"}, texts(out[0]))
	})
}
