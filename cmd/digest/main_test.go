package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingProfile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := run(ctx, Opts{Profile: "non-existent-profile.yml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load profile")
}

func TestRun_InvalidProfile(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "invalid.yml")
	require.NoError(t, os.WriteFile(profile, []byte("invalid: yaml: content: ["), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := run(ctx, Opts{Profile: profile})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load profile")
}

func TestRun_UnknownDigest(t *testing.T) {
	err := run(context.Background(), Opts{Digests: []string{"nope"}, DryRun: "-"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to select digests")
}

// chatBody is the part of the chat request checked by tests
type chatBody struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeServices serves reddit token and listing endpoints plus an openai-compatible chat endpoint.
// The model scores posts by title: titles starting with "great" get 9, everything else 3.
// onChat, if set, receives every chat request.
func fakeServices(t *testing.T, onChat func(req chatBody)) (srv *httptest.Server, llmCalls *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "app-secret", pass)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	listing := func(board string, posts ...string) func(w http.ResponseWriter, r *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			var children []string
			for i, p := range posts {
				parts := strings.SplitN(p, ":", 2)
				children = append(children, fmt.Sprintf(
					`{"kind":"t3","data":{"id":"%s%d","subreddit":%q,"title":%q,"selftext":"body of %s","is_self":true,"permalink":"/r/%s/comments/%s%d/","score":%s}}`,
					board, i, board, parts[0], parts[0], board, board, i, parts[1]))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"kind":"Listing","data":{"after":null,"children":[%s]}}`, strings.Join(children, ","))
		}
	}
	mux.HandleFunc("/r/MachineLearning/top", listing("MachineLearning", "great paper:120", "meme:0", "question:5"))
	mux.HandleFunc("/r/LocalLLaMA/top", listing("LocalLLaMA", "great model:40"))
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req chatBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if onChat != nil {
			onChat(req)
		}
		score := 3
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "**Title**: great") {
			score = 9
		}
		content := fmt.Sprintf(`{"analysis_brief":"ok","score":%d,"summary":"summary %d"}`, score, n)
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	return httptest.NewServer(mux), calls
}

func testOpts(srvURL, profile, out string) Opts {
	opts := Opts{Profile: profile, DryRun: out, Workers: 2, Timeout: 5 * time.Second}
	opts.Reddit.ClientID = "app-id"
	opts.Reddit.ClientSecret = "app-secret"
	opts.Reddit.APIURL = srvURL
	opts.Reddit.TokenURL = srvURL + "/api/v1/access_token"
	opts.LLM.APIKey = "llm-key"
	opts.LLM.BaseURL = srvURL + "/v1"
	opts.Email.To = "reader@example.com"
	return opts
}

func TestRun_DryRun(t *testing.T) {
	srv, llmCalls := fakeServices(t, nil)
	defer srv.Close()

	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.yml")
	require.NoError(t, os.WriteFile(profile, []byte(`
digests:
  - name: ml
    subject: "ML picks"
    boards:
      - name: MachineLearning
        limit: 10
      - name: LocalLLaMA
        limit: 10
`), 0o600))
	out := filepath.Join(dir, "digest.html")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, testOpts(srv.URL, profile, out)))

	assert.Equal(t, int32(3), llmCalls.Load(), "post with 0 upvotes is not scored")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "r/MachineLearning, r/LocalLLaMA")
	assert.Contains(t, html, ">great paper</a>")
	assert.Contains(t, html, ">great model</a>")
	assert.NotContains(t, html, "question")
	assert.NotContains(t, html, "meme")
	assert.Less(t, strings.Index(html, "great paper"), strings.Index(html, "great model"))
}

func TestRun_DryRunNothingToSend(t *testing.T) {
	srv, _ := fakeServices(t, nil)
	defer srv.Close()

	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.yml")
	require.NoError(t, os.WriteFile(profile, []byte("digests:\n  - score_threshold: 10\n    boards:\n      - name: MachineLearning\n"), 0o600))
	out := filepath.Join(dir, "digest.html")

	require.NoError(t, run(context.Background(), testOpts(srv.URL, profile, out)))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRun_BuiltinProfile(t *testing.T) {
	srv, llmCalls := fakeServices(t, nil)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "digest.html")
	require.NoError(t, run(context.Background(), testOpts(srv.URL, "", out)))
	assert.Equal(t, int32(2), llmCalls.Load())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "great paper")
	assert.NotContains(t, string(data), "LocalLLaMA")
}

func TestRun_LLMOptions(t *testing.T) {
	var mu sync.Mutex
	var reqs []chatBody
	srv, _ := fakeServices(t, func(req chatBody) {
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, req)
	})
	defer srv.Close()

	opts := testOpts(srv.URL, "", filepath.Join(t.TempDir(), "digest.html"))
	opts.LLM.Model = "test-model"
	opts.LLM.Temperature = 0.5
	opts.LLM.MaxTokens = 300
	opts.LLM.SystemPrompt = "answer with json only"
	require.NoError(t, run(context.Background(), opts))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, "test-model", req.Model)
		assert.InDelta(t, 0.5, req.Temperature, 0.001)
		assert.Equal(t, 300, req.MaxTokens)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "answer with json only", req.Messages[0].Content)
	}
}

func TestSetupLog(t *testing.T) {
	t.Run("debug mode enabled", func(t *testing.T) {
		setupLog(true)
	})

	t.Run("debug mode disabled", func(t *testing.T) {
		setupLog(false)
	})

	t.Run("with secrets", func(t *testing.T) {
		setupLog(true, "secret1", "", "secret2")
	})
}
