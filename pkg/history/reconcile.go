package history

import "knowledge-chat-be/pkg/llm"

// Merge collapses adjacent same-role turns, keeping part order.
// The input is not modified.
func Merge(turns []llm.Turn) []llm.Turn {
	merged := make([]llm.Turn, 0, len(turns))
	for _, t := range turns {
		if last := len(merged) - 1; last >= 0 && merged[last].Role == t.Role {
			merged[last].Parts = append(merged[last].Parts, t.Parts...)
			continue
		}
		merged = append(merged, llm.Turn{
			Role:  t.Role,
			Parts: append([]llm.Part(nil), t.Parts...),
		})
	}
	return merged
}

// TrimLeading drops everything before the first user turn.
// It returns nil when there is no user turn at all.
func TrimLeading(turns []llm.Turn) []llm.Turn {
	for i, t := range turns {
		if t.Role == llm.RoleUser {
			return turns[i:]
		}
	}
	return nil
}
