package agent

import (
	"fmt"
	"log/slog"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/embedding"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/vectorstore"
)

// Retrieval is the worker that answers similarity-search requests: it
// embeds the query and ranks stored chunks against it.
type Retrieval struct {
	*Agent

	embedder embedding.Embedder
	store    *vectorstore.Store
}

// NewRetrieval creates the retrieval worker and registers its request
// handler.
func NewRetrieval(bus comms.Bus, logger *slog.Logger, embedder embedding.Embedder, store *vectorstore.Store) *Retrieval {
	w := &Retrieval{
		Agent:    New(comms.RoleRetrieval, bus, logger),
		embedder: embedder,
		store:    store,
	}
	w.RegisterHandler(comms.KindRetrievalRequest, w.onRequest)
	return w
}

func (w *Retrieval) onRequest(msg *comms.Message) (map[string]any, error) {
	query := payloadString(msg.Payload, "query")
	topK := payloadInt(msg.Payload, "top_k", DefaultTopK)
	namespace := payloadString(msg.Payload, "namespace")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	response := w.retrieve(query, namespace, topK)
	response["trace_id"] = msg.TraceID

	if err := w.Send(msg.Sender, comms.KindRetrievalResponse, response, msg.TraceID); err != nil {
		return nil, err
	}
	return response, nil
}

// retrieve builds the response payload for one search. Sources are
// collapsed to the single best-scoring document so the answer cites one
// origin, even when matches span files.
func (w *Retrieval) retrieve(query, namespace string, topK int) map[string]any {
	if query == "" {
		return failure("query must not be empty")
	}

	ctx := w.Context()
	vec, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return failure(fmt.Sprintf("query embedding failed: %v", err))
	}

	matches, err := w.store.Search(ctx, namespace, vec, topK)
	if err != nil {
		return failure(fmt.Sprintf("vector search failed: %v", err))
	}

	chunks := make([]string, 0, len(matches))
	scores := make([]float64, 0, len(matches))
	metadata := make([]map[string]any, 0, len(matches))
	var sources []string
	for i, m := range matches {
		chunks = append(chunks, m.Content)
		scores = append(scores, m.Score)
		metadata = append(metadata, m.Metadata)
		if i == 0 && m.Source != "" {
			sources = []string{m.Source}
		}
	}

	w.Logger().Info("retrieval completed",
		slog.String("query", query),
		slog.Int("results", len(matches)),
	)

	return map[string]any{
		"success":          true,
		"query":            query,
		"retrieved_chunks": chunks,
		"scores":           scores,
		"sources":          sources,
		"metadata":         metadata,
		"total_results":    len(matches),
	}
}
