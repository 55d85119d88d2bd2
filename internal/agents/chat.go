package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// ChatFallback is sent back when the assistant cannot answer.
const ChatFallback = "I encountered an error processing your request. Please try again."

const chatPrompt = `The user is chatting with their job search assistant.

CONTEXT (JSON, may be empty):
%s

USER MESSAGE:
%s

Reply conversationally in plain text.`

// Chat answers a free-form message. Errors are logged and turned into ChatFallback.
func (s *System) Chat(ctx context.Context, message string, chatContext map[string]interface{}) string {
	ctxJSON := []byte("{}")
	if len(chatContext) > 0 {
		if b, err := json.Marshal(chatContext); err == nil {
			ctxJSON = b
		}
	}

	reply, err := s.ask(ctx, RoleManager, fmt.Sprintf(chatPrompt, ctxJSON, message))
	if err != nil || reply == "" {
		log.Printf("⚠️ Chat failed: %v", err)
		return ChatFallback
	}
	return reply
}
