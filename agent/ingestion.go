package agent

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/document"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/embedding"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/vectorstore"
)

// DefaultNamespace is the vector-store namespace used when a request
// does not name one.
const DefaultNamespace = "default"

// Ingestion is the worker that turns uploaded files into stored
// vectors: load, chunk, embed, upsert.
type Ingestion struct {
	*Agent

	processor *document.Processor
	embedder  embedding.Embedder
	store     *vectorstore.Store
}

// NewIngestion creates the ingestion worker and registers its request
// handler.
func NewIngestion(bus comms.Bus, logger *slog.Logger, processor *document.Processor, embedder embedding.Embedder, store *vectorstore.Store) *Ingestion {
	w := &Ingestion{
		Agent:     New(comms.RoleIngestion, bus, logger),
		processor: processor,
		embedder:  embedder,
		store:     store,
	}
	w.RegisterHandler(comms.KindIngestionRequest, w.onRequest)
	return w
}

// onRequest runs the full ingestion pipeline for one upload batch and
// reports the outcome back to the sender. Pipeline failures become
// success=false response payloads rather than handler errors, so the
// caller always learns what happened.
func (w *Ingestion) onRequest(msg *comms.Message) (map[string]any, error) {
	start := time.Now()
	filePaths := payloadStrings(msg.Payload, "file_paths")
	namespace := payloadString(msg.Payload, "namespace")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	w.Logger().Info("ingestion started",
		slog.String("trace_id", msg.TraceID),
		slog.Int("files", len(filePaths)),
	)

	response := w.ingest(filePaths, namespace, start)
	response["trace_id"] = msg.TraceID

	if err := w.Send(msg.Sender, comms.KindIngestionResponse, response, msg.TraceID); err != nil {
		return nil, err
	}
	return response, nil
}

// ingest builds the response payload for one batch. Embedding failures
// for individual chunks are skipped and counted; only a load or store
// failure fails the batch.
func (w *Ingestion) ingest(filePaths []string, namespace string, start time.Time) map[string]any {
	pages, err := w.processor.LoadFiles(filePaths)
	if err != nil {
		return failure(fmt.Sprintf("document loading failed: %v", err))
	}
	if len(pages) == 0 {
		resp := failure("No valid files found in upload")
		resp["documents_processed"] = 0
		return resp
	}

	chunks := w.processor.SplitChunks(pages)
	if len(chunks) == 0 {
		return failure("documents contained no usable text")
	}

	ctx := w.Context()
	records := make([]vectorstore.Record, 0, len(chunks))
	failed := 0
	for _, chunk := range chunks {
		vec, err := w.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			failed++
			w.Logger().Warn("chunk embedding failed",
				slog.String("chunk_id", chunk.ID),
				slog.Any("err", err),
			)
			continue
		}
		records = append(records, vectorstore.Record{
			ID:         chunk.ID,
			Content:    chunk.Content,
			Source:     chunk.Source,
			ChunkIndex: chunk.ChunkIndex,
			PageNumber: chunk.PageNumber,
			Metadata:   chunk.Metadata,
			Embedding:  vec,
		})
	}
	if len(records) == 0 {
		return failure(fmt.Sprintf("embedding failed for all %d chunks", len(chunks)))
	}

	if err := w.store.Add(ctx, namespace, records); err != nil {
		return failure(fmt.Sprintf("vector storage failed: %v", err))
	}

	return map[string]any{
		"success":             true,
		"message":             fmt.Sprintf("Successfully processed %d files", len(filePaths)),
		"documents_processed": len(pages),
		"chunks_created":      len(chunks),
		"vectors_stored":      len(records),
		"chunks_failed":       failed,
		"files_processed":     len(filePaths),
		"processing_time":     time.Since(start).Seconds(),
	}
}

func failure(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   message,
	}
}
