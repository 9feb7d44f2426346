package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func encodeChatRequest(model, systemPrompt, userPrompt string, maxTokens int) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})
	return json.Marshal(chatCompletionRequest{Model: model, MaxTokens: maxTokens, Messages: messages})
}

func decodeChatResponse(body []byte) (string, string, error) {
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if strings.TrimSpace(candidate) != "" {
				return candidate, finishReason, nil
			}
		}
	}
	return "", finishReason, nil
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func encodeMessagesRequest(model, systemPrompt, userPrompt string, maxTokens int) ([]byte, error) {
	return json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: userPrompt}},
	})
}

func decodeMessagesResponse(body []byte) (string, string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if resp.Error != nil {
		return "", "", fmt.Errorf("llm request: api error (%s): %s", resp.Error.Type, strings.TrimSpace(resp.Error.Message))
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), resp.StopReason, nil
}
