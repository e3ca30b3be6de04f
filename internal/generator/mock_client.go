package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockClient returns canned drafts for local development.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	count := 5
	fmt.Sscanf(userPrompt, "Write %d quiz questions", &count)

	content, err := buildMockJSON(count)
	if err != nil {
		return nil, err
	}
	return &LLMResponse{
		Content:      content,
		PromptTokens: 800,
		OutputTokens: 150 * count,
	}, nil
}

func buildMockJSON(count int) (string, error) {
	topics := []string{"the opening chapter", "the main character", "the setting", "the ending", "a turning point"}

	out := make([]map[string]interface{}, 0, count)
	for i := 0; i < count; i++ {
		topic := topics[i%len(topics)]
		var q map[string]interface{}
		switch i % 4 {
		case 0:
			q = map[string]interface{}{
				"type":          "multiple_choice",
				"prompt":        fmt.Sprintf("[Mock] What happens in %s?", topic),
				"options":       []string{"[Mock] Option A", "[Mock] Option B", "[Mock] Option C", "[Mock] Option D"},
				"correct_index": i % 4,
			}
		case 1:
			q = map[string]interface{}{
				"type":            "multi_select",
				"prompt":          fmt.Sprintf("[Mock] Which statements about %s are true?", topic),
				"options":         []string{"[Mock] First", "[Mock] Second", "[Mock] Third", "[Mock] Fourth"},
				"correct_indices": []int{0, 2},
			}
		case 2:
			q = map[string]interface{}{
				"type":            "short_answer",
				"prompt":          fmt.Sprintf("[Mock] Name the place described in %s.", topic),
				"accepted_values": []string{"Mock Town", "Mocktown"},
			}
		default:
			q = map[string]interface{}{
				"type":           "true_false",
				"prompt":         fmt.Sprintf("[Mock] %s takes place at night.", strings.ToUpper(topic[:1])+topic[1:]),
				"correct_answer": i%2 == 0,
			}
		}
		out = append(out, q)
	}

	data, err := json.Marshal(map[string]interface{}{"questions": out})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
