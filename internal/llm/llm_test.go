package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeAPI serves the two OpenAI endpoints the client uses.
func fakeAPI(t *testing.T, reply string, status int) (*httptest.Server, *string) {
	t.Helper()
	var lastPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"test-model","object":"model"}]}`))
		case "/v1/chat/completions":
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Messages) == 2 {
				lastPrompt = req.Messages[1].Content
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lastPrompt
}

func TestNewUnconfigured(t *testing.T) {
	c, err := New("", "key", "model", "standard", "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil client when no URL is set")
	}
}

func TestNewInvalidVariant(t *testing.T) {
	if _, err := New("http://localhost:1/v1", "key", "model", "verbose", "en"); err == nil {
		t.Fatal("expected error for invalid variant")
	}
}

func TestPing(t *testing.T) {
	srv, _ := fakeAPI(t, "", http.StatusOK)
	c, err := New(srv.URL+"/v1", "key", "test-model", "standard", "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestGenerateLesson(t *testing.T) {
	srv, prompt := fakeAPI(t, "  **Theory** HDFS stores blocks.  ", http.StatusOK)
	c, err := New(srv.URL+"/v1", "key", "test-model", "concise", "zh")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.GenerateLesson(context.Background(), "Hadoop Core Components", "HDFS", 1)
	if err != nil {
		t.Fatalf("GenerateLesson: %v", err)
	}
	if got != "**Theory** HDFS stores blocks." {
		t.Errorf("GenerateLesson() = %q", got)
	}
	if !strings.Contains(*prompt, `topic 1 "HDFS"`) || !strings.Contains(*prompt, `language "zh"`) {
		t.Errorf("unexpected prompt:\n%s", *prompt)
	}
}

func TestLessonUsesGeneratedTheory(t *testing.T) {
	srv, _ := fakeAPI(t, "generated theory", http.StatusOK)
	c, err := New(srv.URL+"/v1", "key", "test-model", "standard", "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := c.Lesson(context.Background(), "Docker", 2, "Containers")
	if got.Theory != "generated theory" {
		t.Errorf("Theory = %q, want generated text", got.Theory)
	}
	if got.Title != "Containers" || !strings.Contains(got.Code, "docker") {
		t.Errorf("expected local structure around generated theory, got %+v", got)
	}
}

func TestLessonFallsBackOnError(t *testing.T) {
	srv, _ := fakeAPI(t, "", http.StatusInternalServerError)
	c, err := New(srv.URL+"/v1", "key", "test-model", "standard", "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := c.Lesson(context.Background(), "Docker", 2, "Containers")
	want := LocalLesson("Docker", 2, "Containers")
	if got.Theory != want.Theory {
		t.Errorf("Theory = %q, want local %q", got.Theory, want.Theory)
	}
}

func TestLessonNilClient(t *testing.T) {
	var c *Client
	got := c.Lesson(context.Background(), "Linux Basics", 3, "")
	if got.Title != "Linux Basics · Topic 3" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestLocalLessonSnippets(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"Linux Basics", "chmod 644"},
		{"Shell Scripting", "#!/bin/bash"},
		{"Docker", "docker pull"},
		{"Hadoop on Docker", "hdfs dfs"},
		{"Kubernetes", `echo "Studying topic 1 of Kubernetes"`},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			got := LocalLesson(tt.module, 1, "Intro")
			if !strings.Contains(got.Code, tt.want) {
				t.Errorf("Code for %q = %q, want it to contain %q", tt.module, got.Code, tt.want)
			}
			if len(got.Exercises) != 3 {
				t.Errorf("expected 3 exercises, got %d", len(got.Exercises))
			}
		})
	}

	a := LocalLesson("Docker", 1, "Images")
	b := LocalLesson("Docker", 1, "Images")
	if a.Theory != b.Theory || a.Code != b.Code {
		t.Error("LocalLesson should be deterministic")
	}
}
