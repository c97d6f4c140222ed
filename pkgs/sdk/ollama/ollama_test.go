package ollama_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk/ollama"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// route is a canned reply for one method and path.
type route struct {
	status int
	body   string
}

type mockOllama struct {
	mu     sync.Mutex
	routes map[string]route
	bodies map[string]string
}

func newMockOllama(t *testing.T, routes map[string]route) (*mockOllama, *httptest.Server) {
	t.Helper()
	m := &mockOllama{routes: routes, bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.bodies[key] = string(body)
		rt, ok := m.routes[key]
		m.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "404 page not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.status)
		_, _ = io.WriteString(w, rt.body)
	}))
	t.Cleanup(srv.Close)
	return m, srv
}

func (m *mockOllama) body(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[key]
}

func newClient(t *testing.T, endpoint string) *ollama.Client {
	t.Helper()
	cfg, err := sdk.NewConfiguration(sdk.Settings{Endpoint: endpoint})
	require.NoError(t, err)
	e, err := sdk.NewExecutor(cfg, sdk.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return ollama.New(e)
}

func TestGenerateCompletion(t *testing.T) {
	m, srv := newMockOllama(t, map[string]route{
		"POST /api/generate": {http.StatusOK, `{
  "model": "llama3.2",
  "created_at": "2023-08-04T19:22:45.499127Z",
  "response": "The sky is blue because of Rayleigh scattering.",
  "done": true,
  "done_reason": "stop",
  "total_duration": 5043500667,
  "eval_count": 290
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.GenerateCompletion(context.Background(), &api.GenerateRequest{
		Model:  "llama3.2",
		Prompt: "Why is the sky blue?",
	})
	require.NoError(t, err)
	require.Equal(t, "llama3.2", resp.Model)
	require.Equal(t, "The sky is blue because of Rayleigh scattering.", resp.Response)
	require.True(t, resp.Done)
	require.Equal(t, 290, resp.EvalCount)
	require.Equal(t, time.Date(2023, 8, 4, 19, 22, 45, 499127000, time.UTC), resp.CreatedAt.UTC())

	sent := m.body("POST /api/generate")
	require.Equal(t, "Why is the sky blue?", gjson.Get(sent, "prompt").String())
	require.True(t, gjson.Get(sent, "stream").Exists())
	require.False(t, gjson.Get(sent, "stream").Bool())
}

func TestGenerateCompletionStreaming(t *testing.T) {
	lines := []string{
		`{"model":"llama3.2","created_at":"2023-08-04T08:52:19.385406455-07:00","response":"The","done":false}`,
		`{"model":"llama3.2","created_at":"2023-08-04T08:52:19.385406455-07:00","response":" sky","done":false}`,
		`{"model":"llama3.2","created_at":"2023-08-04T19:22:45.499127Z","response":"","done":true,"done_reason":"stop"}`,
	}
	m, srv := newMockOllama(t, map[string]route{
		"POST /api/generate": {http.StatusOK, strings.Join(lines, "\n") + "\n"},
	})
	cli := newClient(t, srv.URL)
	req := &api.GenerateRequest{Model: "llama3.2", Prompt: "Why is the sky blue?"}

	text := ""
	done := false
	resp, err := cli.GenerateCompletion(context.Background(), req,
		sdk.WithOnToken(func(token string) {
			if chunk, ok := ollama.ParseGenerateChunk(token); ok {
				text += chunk.Response
				done = chunk.Done
			}
		}))
	require.NoError(t, err)
	require.Nil(t, resp)
	require.Equal(t, "The sky", text)
	require.True(t, done)
	require.True(t, gjson.Get(m.body("POST /api/generate"), "stream").Bool())
	require.Nil(t, req.Stream)

	ts, err := cli.StreamCompletion(context.Background(), req)
	require.NoError(t, err)
	tokens, err := ts.Collect()
	require.NoError(t, err)
	require.Equal(t, lines, tokens)
}

func TestGenerateChatCompletion(t *testing.T) {
	m, srv := newMockOllama(t, map[string]route{
		"POST /api/chat": {http.StatusOK, `{
  "model": "llama3.2",
  "created_at": "2023-12-12T14:13:43.416799Z",
  "message": {"role": "assistant", "content": "Hello! How are you today?"},
  "done": true
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.GenerateChatCompletion(context.Background(), &api.ChatRequest{
		Model:    "llama3.2",
		Messages: []api.Message{{Role: "user", Content: "Hello!"}},
	})
	require.NoError(t, err)
	require.Equal(t, "assistant", resp.Message.Role)
	require.Equal(t, "Hello! How are you today?", resp.Message.Content)

	sent := m.body("POST /api/chat")
	require.Equal(t, "Hello!", gjson.Get(sent, "messages.0.content").String())
}

func TestStreamChatCompletion(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"POST /api/chat": {http.StatusOK, `{"model":"llama3.2","created_at":"2023-12-12T14:13:43.416799Z","message":{"role":"assistant","content":"Hi"},"done":false}
{"model":"llama3.2","created_at":"2023-12-12T14:13:43.416799Z","message":{"role":"assistant","content":"!"},"done":true}
`},
	})
	cli := newClient(t, srv.URL)

	ts, err := cli.StreamChatCompletion(context.Background(), &api.ChatRequest{
		Model:    "llama3.2",
		Messages: []api.Message{{Role: "user", Content: "Hello!"}},
	})
	require.NoError(t, err)

	content := ""
	for token := range ts.Tokens() {
		if chunk, ok := ollama.ParseChatChunk(token); ok {
			content += chunk.Message.Content
		}
	}
	require.NoError(t, ts.Err())
	require.Equal(t, "Hi!", content)
}

func TestPullModel(t *testing.T) {
	progress := `{"status":"pulling manifest"}
{"status":"downloading digestname","digest":"digestname","total":2142590208,"completed":241970}
{"status":"success"}
`
	_, srv := newMockOllama(t, map[string]route{
		"POST /api/pull": {http.StatusOK, progress},
	})
	cli := newClient(t, srv.URL)

	statuses := []string{}
	resp, err := cli.PullModel(context.Background(), &api.PullRequest{Model: "llama3.2"},
		sdk.WithOnToken(func(token string) {
			if p, ok := ollama.ParseProgressChunk(token); ok {
				statuses = append(statuses, p.Status)
			}
		}))
	require.NoError(t, err)
	require.Nil(t, resp)
	require.Equal(t, []string{"pulling manifest", "downloading digestname", "success"}, statuses)

	ts, err := cli.StreamPull(context.Background(), &api.PullRequest{Model: "llama3.2"})
	require.NoError(t, err)
	tokens, err := ts.Collect()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	p, ok := ollama.ParseProgressChunk(tokens[1])
	require.True(t, ok)
	require.Equal(t, int64(2142590208), p.Total)
	require.Equal(t, int64(241970), p.Completed)
}

func TestPullModelSingleResponse(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"POST /api/pull": {http.StatusOK, `{"status":"success"}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.PullModel(context.Background(), &api.PullRequest{Model: "llama3.2"})
	require.NoError(t, err)
	require.Equal(t, "success", resp.Status)
}

func TestGenerateEmbeddings(t *testing.T) {
	m, srv := newMockOllama(t, map[string]route{
		"POST /api/embed": {http.StatusOK, `{
  "model": "all-minilm",
  "embeddings": [[0.010071029, -0.0017594862, 0.05007221]],
  "total_duration": 14143917,
  "prompt_eval_count": 8
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.GenerateEmbeddings(context.Background(), &api.EmbedRequest{
		Model: "all-minilm",
		Input: "Why is the sky blue?",
	})
	require.NoError(t, err)
	require.Equal(t, "all-minilm", resp.Model)
	require.Len(t, resp.Embeddings, 1)
	require.Len(t, resp.Embeddings[0], 3)
	require.InDelta(t, 0.010071029, resp.Embeddings[0][0], 1e-6)
	require.Equal(t, "Why is the sky blue?", gjson.Get(m.body("POST /api/embed"), "input").String())
}

func TestListLocalModels(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"GET /api/tags": {http.StatusOK, `{
  "models": [
    {
      "name": "deepseek-r1:latest",
      "model": "deepseek-r1:latest",
      "modified_at": "2025-05-10T08:06:48.639712648-07:00",
      "size": 4683075271,
      "digest": "0a8c266910232fd3291e71e5ba1e058cc5af9d411192cf88b6d30e92b6e73163",
      "details": {"format": "gguf", "family": "qwen2", "parameter_size": "7.6B", "quantization_level": "Q4_K_M"}
    }
  ]
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.ListLocalModels(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Models, 1)
	require.Equal(t, "deepseek-r1:latest", resp.Models[0].Name)
	require.Equal(t, int64(4683075271), resp.Models[0].Size)
	require.Equal(t, "7.6B", resp.Models[0].Details.ParameterSize)
	require.Equal(t, 2025, resp.Models[0].ModifiedAt.Year())
}

func TestListRunningModels(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"GET /api/ps": {http.StatusOK, `{
  "models": [
    {
      "name": "mistral:latest",
      "model": "mistral:latest",
      "size": 5137025024,
      "digest": "2ae6f6dd7a3dd734790bbbf58b8909a606e0e7e97e94b7604e0aa7ae4490e6d8",
      "details": {"format": "gguf", "family": "llama", "parameter_size": "7.2B", "quantization_level": "Q4_0"},
      "expires_at": "2024-06-04T14:38:31.83753-07:00",
      "size_vram": 5137025024
    }
  ]
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.ListRunningModels(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Models, 1)
	require.Equal(t, "mistral:latest", resp.Models[0].Name)
	require.Equal(t, int64(5137025024), resp.Models[0].SizeVRAM)
}

func TestModelInformation(t *testing.T) {
	m, srv := newMockOllama(t, map[string]route{
		"POST /api/show": {http.StatusOK, `{
  "modelfile": "FROM llava",
  "parameters": "num_keep 24",
  "template": "{{ .Prompt }}",
  "details": {"format": "gguf", "family": "llama", "parameter_size": "7B", "quantization_level": "Q4_0"},
  "model_info": {"general.architecture": "llama", "general.parameter_count": 8030261248},
  "capabilities": ["completion", "vision"],
  "modified_at": "2025-04-22T10:00:00Z"
}`},
	})
	cli := newClient(t, srv.URL)

	resp, err := cli.ModelInformation(context.Background(), &api.ShowRequest{Model: "llava"})
	require.NoError(t, err)
	require.Equal(t, "FROM llava", resp.Modelfile)
	require.Equal(t, "llama", resp.Details.Family)
	require.Equal(t, "llama", resp.ModelInfo["general.architecture"])
	require.Len(t, resp.Capabilities, 2)
	require.Equal(t, "llava", gjson.Get(m.body("POST /api/show"), "model").String())
}

func TestDeleteModel(t *testing.T) {
	m, srv := newMockOllama(t, map[string]route{
		"DELETE /api/delete": {http.StatusOK, ``},
	})
	cli := newClient(t, srv.URL)

	ok, err := cli.DeleteModel(context.Background(), &api.DeleteRequest{Model: "llama3:13b"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "llama3:13b", gjson.Get(m.body("DELETE /api/delete"), "model").String())
}

func TestDeleteModelNotFound(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"DELETE /api/delete": {http.StatusNotFound, `{"error":"model 'ghost' not found"}`},
	})
	cli := newClient(t, srv.URL)

	ok, err := cli.DeleteModel(context.Background(), &api.DeleteRequest{Model: "ghost"})
	require.False(t, ok)
	require.ErrorIs(t, err, errors.ErrApplication)
	require.Equal(t, "model 'ghost' not found", err.Error())
}

func TestNullResponseBody(t *testing.T) {
	_, srv := newMockOllama(t, map[string]route{
		"GET /api/tags":   {http.StatusOK, `null`},
		"GET /api/ps":     {http.StatusOK, `null`},
		"POST /api/show":  {http.StatusOK, `null`},
		"POST /api/embed": {http.StatusOK, `null`},
		"POST /api/chat":  {http.StatusOK, `null`},
	})
	cli := newClient(t, srv.URL)
	ctx := context.Background()

	tcs := []struct {
		name string
		call func() error
	}{
		{"list local models", func() error { _, err := cli.ListLocalModels(ctx); return err }},
		{"list running models", func() error { _, err := cli.ListRunningModels(ctx); return err }},
		{"model information", func() error {
			_, err := cli.ModelInformation(ctx, &api.ShowRequest{Model: "llama3.2"})
			return err
		}},
		{"embeddings", func() error {
			_, err := cli.GenerateEmbeddings(ctx, &api.EmbedRequest{Model: "all-minilm", Input: "text"})
			return err
		}},
		{"chat", func() error {
			_, err := cli.GenerateChatCompletion(ctx, &api.ChatRequest{Model: "llama3.2"})
			return err
		}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.call(), errors.ErrUnmarshalFailed)
		})
	}
}

func TestNilRequest(t *testing.T) {
	cli := newClient(t, "http://localhost:1")
	ctx := context.Background()

	tcs := []struct {
		name string
		call func() error
	}{
		{"generate", func() error { _, err := cli.GenerateCompletion(ctx, nil); return err }},
		{"chat", func() error { _, err := cli.GenerateChatCompletion(ctx, nil); return err }},
		{"pull", func() error { _, err := cli.PullModel(ctx, nil); return err }},
		{"embed", func() error { _, err := cli.GenerateEmbeddings(ctx, nil); return err }},
		{"show", func() error { _, err := cli.ModelInformation(ctx, nil); return err }},
		{"delete", func() error { _, err := cli.DeleteModel(ctx, nil); return err }},
		{"stream generate", func() error { _, err := cli.StreamCompletion(ctx, nil); return err }},
		{"stream chat", func() error { _, err := cli.StreamChatCompletion(ctx, nil); return err }},
		{"stream pull", func() error { _, err := cli.StreamPull(ctx, nil); return err }},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.ErrorIs(t, err, errors.ErrArgumentNull)
			require.Equal(t, "ArgumentNullException: request is null or empty", err.Error())
		})
	}
}

func TestParseChunks(t *testing.T) {
	_, ok := ollama.ParseGenerateChunk("")
	require.False(t, ok)

	_, ok = ollama.ParseChatChunk(`{"model":"llama3.2","message":`)
	require.False(t, ok)

	chunk, ok := ollama.ParseGenerateChunk(`  {"model":"llama3.2","response":"a","done":false}  `)
	require.True(t, ok)
	require.Equal(t, "a", chunk.Response)
}

func TestFormat(t *testing.T) {
	type Weather struct {
		City        string `json:"city"`
		Temperature int    `json:"temperature"`
	}

	schema, err := ollama.Format(Weather{})
	require.NoError(t, err)
	require.Equal(t, "object", gjson.GetBytes(schema, "type").String())
	require.Equal(t, "string", gjson.GetBytes(schema, "properties.city.type").String())
	require.Equal(t, "integer", gjson.GetBytes(schema, "properties.temperature.type").String())

	_, err = ollama.Format(nil)
	require.ErrorIs(t, err, errors.ErrArgumentNull)

	m, srv := newMockOllama(t, map[string]route{
		"POST /api/generate": {http.StatusOK, `{"model":"llama3.2","created_at":"2024-12-06T00:48:09.983619Z","response":"{\"city\":\"Taipei\",\"temperature\":30}","done":true}`},
	})
	cli := newClient(t, srv.URL)
	_, err = cli.GenerateCompletion(context.Background(), &api.GenerateRequest{
		Model:  "llama3.2",
		Prompt: "Weather in Taipei?",
		Format: schema,
	})
	require.NoError(t, err)
	require.Equal(t, "object", gjson.Get(m.body("POST /api/generate"), "format.type").String())
}
