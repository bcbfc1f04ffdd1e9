package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatModel is the minimal completion surface ChatOracle needs.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

const judgeSystemPrompt = `You decide whether web page content matches a description.
Reply with a single JSON object and nothing else:
{"match": "<verdict>", "summary_input": "<one sentence summary of the content>"}
where <verdict> is one of:
  "not_found"   - nothing in the content matches the description
  "too_many"    - a match is present but surrounded by much unrelated content
  "exact_match" - the content matches the description without extra elements`

// judgement is the JSON reply expected from the model.
type judgement struct {
	Match        string `json:"match"`
	SummaryInput string `json:"summary_input"`
}

// ChatOracle asks a chat model for a verdict.
type ChatOracle struct {
	model  ChatModel
	logger *zap.Logger
}

// NewChatOracle wraps model.
func NewChatOracle(model ChatModel, logger *zap.Logger) *ChatOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatOracle{model: model, logger: logger.With(zap.String("component", "chat_oracle"))}
}

// Judge implements Oracle.
func (o *ChatOracle) Judge(ctx context.Context, content, prompt string) (Verdict, error) {
	reply, err := o.model.Complete(ctx, []Message{
		{Role: RoleSystem, Content: judgeSystemPrompt},
		{Role: RoleUser, Content: "CONTENT: " + content + "\nPROMPT: " + prompt},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var j judgement
	if err := json.Unmarshal([]byte(StripFences(reply)), &j); err != nil {
		return "", NewValidationError("reply is not valid JSON", err)
	}
	v, err := ParseVerdict(j.Match)
	if err != nil {
		return "", err
	}
	o.logger.Debug("oracle verdict", zap.String("verdict", string(v)), zap.String("summary", j.SummaryInput))
	return v, nil
}

// StripFences removes a surrounding ``` or ```json fence from a model reply.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else if rest := strings.TrimLeftFunc(s, unicode.IsLetter); rest != s {
		// Single line: a language tag runs straight into the body.
		if t := strings.TrimSpace(rest); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			s = rest
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
