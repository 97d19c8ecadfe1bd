package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/provider"
)

// answerPrompt constrains the model to the retrieved context. The
// refusal phrasing must stay aligned with noInfoIndicators, which gates
// source attribution on it.
const answerPrompt = `You are a helpful AI assistant. Answer questions based ONLY on the provided context.

Instructions:
- Use ONLY the provided context
- Keep answers SHORT and CONCISE (max 2-3 sentences)
- If information is not in the context, say: "I don't have enough information to answer that."
- Be factual and direct

Context:
%s

Question:
%s

Answer:`

// noInfoIndicators are phrases marking an answer as a refusal. A
// refusal carries no source attribution.
var noInfoIndicators = []string{
	"i don't have enough information",
	"i don't have sufficient information",
	"no information found",
	"not enough information",
	"cannot answer",
	"unable to answer",
}

// LLMQuery is the worker that generates grounded answers over the
// context the retrieval stage produced.
type LLMQuery struct {
	*Agent

	provider provider.Provider
}

// NewLLMQuery creates the answer-generation worker and registers its
// request handler.
func NewLLMQuery(bus comms.Bus, logger *slog.Logger, p provider.Provider) *LLMQuery {
	w := &LLMQuery{
		Agent:    New(comms.RoleLLMResponse, bus, logger),
		provider: p,
	}
	w.RegisterHandler(comms.KindLLMQueryRequest, w.onRequest)
	return w
}

func (w *LLMQuery) onRequest(msg *comms.Message) (map[string]any, error) {
	query := payloadString(msg.Payload, "query")
	context := payloadString(msg.Payload, "context")
	sources := payloadStrings(msg.Payload, "sources")
	metadata := payloadMaps(msg.Payload, "metadata")

	response := w.answer(query, context, sources, metadata)
	response["trace_id"] = msg.TraceID

	if err := w.Send(msg.Sender, comms.KindLLMQueryResponse, response, msg.TraceID); err != nil {
		return nil, err
	}
	return response, nil
}

// answer runs one chat completion over the prompt and shapes the
// grounded-answer payload. Source attribution is withheld when the
// model reports it found nothing in the context.
func (w *LLMQuery) answer(query, context string, sources []string, metadata []map[string]any) map[string]any {
	if query == "" {
		return failure("query must not be empty")
	}

	resp, err := w.provider.Chat(w.Context(), []provider.Message{{
		Role:    provider.RoleUser,
		Content: fmt.Sprintf(answerPrompt, context, query),
	}})
	if err != nil {
		return failure(fmt.Sprintf("answer generation failed: %v", err))
	}

	answerText := resp.Content
	hasRelevantInfo := true
	lower := strings.ToLower(answerText)
	for _, indicator := range noInfoIndicators {
		if strings.Contains(lower, indicator) {
			hasRelevantInfo = false
			break
		}
	}

	citedSources := []string{}
	if hasRelevantInfo && len(sources) > 0 {
		answerText += fmt.Sprintf("\n\nSource: %s", sources[0])
		citedSources = sources
	}

	answer := map[string]any{
		"answer":            answerText,
		"model":             resp.Model,
		"has_justification": hasRelevantInfo,
		"sources":           citedSources,
	}
	if len(metadata) > 0 {
		answer["context_metadata"] = contextMetadata(metadata)
	}

	w.Logger().Info("answer generated",
		slog.String("model", resp.Model),
		slog.Bool("has_justification", hasRelevantInfo),
	)

	return map[string]any{
		"success":  true,
		"query":    query,
		"response": answer,
		"model":    resp.Model,
	}
}

// contextMetadata summarizes the retrieved chunks' metadata for the
// response: distinct sources plus the chunk count.
func contextMetadata(metadata []map[string]any) map[string]any {
	seen := make(map[string]bool)
	var sources []string
	for _, m := range metadata {
		source, _ := m["source"].(string)
		if source == "" {
			source = "Unknown"
		}
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
	}
	return map[string]any{
		"sources":      sources,
		"total_chunks": len(metadata),
	}
}
