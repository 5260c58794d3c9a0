package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

const (
	ActionCreate   = "create_reminder"
	ActionList     = "list_reminder"
	ActionComplete = "complete_reminder"
	ActionDelete   = "delete_reminder"
	ActionUnknown  = "unknown"
)

// Intent is the model's reading of a message the strict grammar rejected.
// Command is always in the canonical "M/D H:MM 內容" form and still has to
// pass the grammar before anything is stored.
type Intent struct {
	Action      string `json:"action"`
	Command     string `json:"command"`
	ID          string `json:"id"`
	AIMessage   string `json:"ai_message"`
	RawResponse string `json:"-"`
}

const systemPromptTemplate = `你是提醒小幫手，負責把用戶的自然語言訊息轉換成固定格式的指令。

當前時間: %s

可用的 action:
- create_reminder: 新增提醒
- list_reminder: 列出未完成的提醒
- complete_reminder: 完成提醒 (需要 id)
- delete_reminder: 刪除提醒 (需要 id)
- unknown: 無法識別

規則：
1. create_reminder 時，command 必須是「月/日 時:分 內容」格式，例如「3/20 9:00 A廠商開會」。
   月、日、時、分只用阿拉伯數字，時間使用 24 小時制，欄位之間只有一個空白。
2. 相對時間（如「明天」、「下週一」、「3 小時後」）請根據當前時間換算成具體日期時間。
3. 用戶沒有提供時間或內容時，action 設為 unknown，並在 ai_message 追問缺少的資訊。
4. complete_reminder 與 delete_reminder 的 id 必須是用戶訊息中出現的提醒ID，不可自行編造。
5. 不需要的欄位請填空字串。`

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"))
}

// JSON Schema for structured output
var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["create_reminder", "list_reminder", "complete_reminder", "delete_reminder", "unknown"],
			"description": "The action to perform"
		},
		"command": {
			"type": "string",
			"description": "Reminder in the form M/D H:MM body, only for create_reminder"
		},
		"id": {
			"type": "string",
			"description": "Reminder id for complete or delete"
		},
		"ai_message": {
			"type": "string",
			"description": "Friendly message to show user (for asking questions or casual chat)"
		}
	},
	"required": ["action", "command", "id", "ai_message"],
	"additionalProperties": false
}`)

// ParseIntent asks the model to map userMessage onto one bot action. now is
// the caller's wall clock, used to resolve relative dates.
func (c *Client) ParseIntent(ctx context.Context, userMessage string, now time.Time) (*Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(now),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMessage,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "intent",
				Schema: intentSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	intent := &Intent{RawResponse: content}

	if err := json.Unmarshal([]byte(content), intent); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	intent.Action = strings.TrimSpace(intent.Action)
	intent.Command = strings.TrimSpace(intent.Command)
	intent.ID = strings.TrimSpace(intent.ID)
	if intent.Action == "" {
		intent.Action = ActionUnknown
	}

	return intent, nil
}
