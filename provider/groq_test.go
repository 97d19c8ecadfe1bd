package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGroqProvider_Chat(t *testing.T) {
	var gotAuth string
	var gotReq groqRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := groqResponse{
			Model: "meta-llama/llama-4-scout-17b-16e-instruct",
			Choices: []groqChoice{
				{Message: groqMessage{Role: "assistant", Content: "Paris is the capital of France."}},
			},
			Usage: groqUsage{PromptTokens: 42, CompletionTokens: 9},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewGroqProvider(GroqConfig{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := p.Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "What is the capital of France?"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model == "" || len(gotReq.Messages) != 1 {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.MaxTokens != defaultGroqMaxTokens {
		t.Errorf("max_tokens = %d, want %d", gotReq.MaxTokens, defaultGroqMaxTokens)
	}
	if resp.Content != "Paris is the capital of France." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 42 || resp.Usage.OutputTokens != 9 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestGroqProvider_ChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth_error"}}`))
	}))
	defer srv.Close()

	p := NewGroqProvider(GroqConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Chat succeeded, want error")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error = %v, want status 401 mention", err)
	}
}

func TestMockProvider_Cycles(t *testing.T) {
	m := NewMockProvider("first", "second")
	ctx := context.Background()

	for i, want := range []string{"first", "second", "first"} {
		resp, err := m.Chat(ctx, nil)
		if err != nil {
			t.Fatalf("Chat %d: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("Chat %d = %q, want %q", i, resp.Content, want)
		}
	}
}
