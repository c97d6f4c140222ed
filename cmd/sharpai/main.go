package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ollama/ollama/api"
	oai "github.com/openai/openai-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ChiaYuChang/sharpai/internal/global"
	ec "github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk/ollama"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk/openai"
	"github.com/ChiaYuChang/sharpai/pkgs/sharpai"
)

const usage = `Usage: sharpai [flags] <command> [args]

Commands:
  ping                     check that the endpoint answers a HEAD request
  models                   list local Ollama models
  ps                       list running Ollama models
  show <model>             show Ollama model information
  pull <model>             pull an Ollama model
  delete <model>           delete an Ollama model
  generate <model> <text>  Ollama completion
  chat <model> <text>      Ollama chat completion
  embed <model> <text>     Ollama embeddings
  openai-chat <model> <text>
                           OpenAI-compatible chat completion

Flags:
`

func main() {
	var configPath, metricsAddr string
	var stream bool
	flag.StringVarP(&configPath, "config", "c", "./configs/sharpai.json", "Path to the configuration file")
	flag.String("endpoint", "", "Base URL of the API server")
	flag.String("token", "", "Bearer token")
	flag.Int("timeout-ms", 0, "Response timeout in milliseconds")
	flag.String("otel-endpoint", "", "OTLP gRPC collector endpoint")
	flag.BoolVarP(&stream, "stream", "s", false, "Print tokens as they arrive")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address while the command runs")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	bindFlags(map[string]string{
		"sdk.endpoint":            "endpoint",
		"sdk.bearer_token":        "token",
		"sdk.timeout_ms":          "timeout-ms",
		"otel.collector_endpoint": "otel-endpoint",
	})

	ext := filepath.Ext(configPath)
	name := strings.TrimSuffix(filepath.Base(configPath), ext)
	err := global.LoadConfigs(name, strings.TrimPrefix(ext, "."), []string{filepath.Dir(configPath)})
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			global.Logger.Fatal().Err(err).Msg("Failed to load configurations")
		}
		global.Logger = global.InitBaseLogger()
		global.Logger.Warn().Str("config", configPath).Msg("Configuration file not found, using flags and environment")
	}

	logger, closeLog, err := global.Config().Logger.NewLogger()
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("Failed to create logger")
	}
	defer closeLog()
	global.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg := global.Config().Otel; cfg.Enabled() {
		shutdown, err := global.InitTraceProvider(ctx, cfg)
		if err != nil {
			global.Logger.Fatal().Err(err).Msg("Failed to initialize trace provider")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				global.Logger.Error().Err(err).Msg("Failed to shut down trace provider")
			}
		}()
	}

	if metricsAddr != "" {
		global.Metrics()
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				global.Logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
		defer srv.Close()
	}

	// abort the in-flight request on SIGINT/SIGTERM
	handle := sdk.NewCancellationHandle()
	go func() {
		<-ctx.Done()
		handle.Abort()
	}()

	opts := []sdk.CallOption{sdk.WithCancellation(handle)}
	if err := run(ctx, global.SDK(), stream, flag.Args(), opts); err != nil {
		var e *ec.Error
		if errors.As(err, &e) {
			global.Logger.Error().Interface("error", e.ToHTTPError()).Msg("Command failed")
			_ = e.MarshalAndWriteTo(os.Stdout)
			fmt.Println()
		} else {
			global.Logger.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}

func bindFlags(keys map[string]string) {
	for key, name := range keys {
		f := flag.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			global.Logger.Fatal().Err(err).Str("flag", name).Msg("Failed to bind flag")
		}
	}
}

func run(ctx context.Context, s *sharpai.SDK, stream bool, args []string, opts []sdk.CallOption) error {
	cmd, args := args[0], args[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s expects %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "ping":
		ok, err := s.ValidateConnectivity(ctx, opts...)
		if err != nil {
			return err
		}
		fmt.Printf("%s reachable: %t\n", s.Config().Endpoint(), ok)

	case "models":
		resp, err := s.Ollama.ListLocalModels(ctx, opts...)
		if err != nil {
			return err
		}
		for _, m := range resp.Models {
			fmt.Printf("%-40s %12d  %s\n", m.Name, m.Size, m.ModifiedAt.Format(time.RFC3339))
		}

	case "ps":
		resp, err := s.Ollama.ListRunningModels(ctx, opts...)
		if err != nil {
			return err
		}
		for _, m := range resp.Models {
			fmt.Printf("%-40s %12d  until %s\n", m.Name, m.Size, m.ExpiresAt.Format(time.RFC3339))
		}

	case "show":
		if err := need(1); err != nil {
			return err
		}
		resp, err := s.Ollama.ModelInformation(ctx, &api.ShowRequest{Model: args[0]}, opts...)
		if err != nil {
			return err
		}
		return printJSON(resp.Details)

	case "pull":
		if err := need(1); err != nil {
			return err
		}
		if stream {
			opts = append(opts, sdk.WithOnToken(func(token string) {
				if p, ok := ollama.ParseProgressChunk(token); ok {
					fmt.Printf("%s %d/%d\n", p.Status, p.Completed, p.Total)
				}
			}))
		}
		resp, err := s.Ollama.PullModel(ctx, &api.PullRequest{Model: args[0]}, opts...)
		if err != nil {
			return err
		}
		if resp != nil {
			fmt.Println(resp.Status)
		}

	case "delete":
		if err := need(1); err != nil {
			return err
		}
		ok, err := s.Ollama.DeleteModel(ctx, &api.DeleteRequest{Model: args[0]}, opts...)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s: %t\n", args[0], ok)

	case "generate":
		if err := need(2); err != nil {
			return err
		}
		if stream {
			opts = append(opts, sdk.WithOnToken(func(token string) {
				if c, ok := ollama.ParseGenerateChunk(token); ok {
					fmt.Print(c.Response)
				}
			}))
		}
		resp, err := s.Ollama.GenerateCompletion(ctx, &api.GenerateRequest{
			Model:  args[0],
			Prompt: strings.Join(args[1:], " "),
		}, opts...)
		if err != nil {
			return err
		}
		if resp != nil {
			fmt.Print(resp.Response)
		}
		fmt.Println()

	case "chat":
		if err := need(2); err != nil {
			return err
		}
		if stream {
			opts = append(opts, sdk.WithOnToken(func(token string) {
				if c, ok := ollama.ParseChatChunk(token); ok {
					fmt.Print(c.Message.Content)
				}
			}))
		}
		resp, err := s.Ollama.GenerateChatCompletion(ctx, &api.ChatRequest{
			Model: args[0],
			Messages: []api.Message{
				{Role: "user", Content: strings.Join(args[1:], " ")},
			},
		}, opts...)
		if err != nil {
			return err
		}
		if resp != nil {
			fmt.Print(resp.Message.Content)
		}
		fmt.Println()

	case "embed":
		if err := need(2); err != nil {
			return err
		}
		resp, err := s.Ollama.GenerateEmbeddings(ctx, &api.EmbedRequest{
			Model: args[0],
			Input: strings.Join(args[1:], " "),
		}, opts...)
		if err != nil {
			return err
		}
		return printJSON(resp.Embeddings)

	case "openai-chat":
		if err := need(2); err != nil {
			return err
		}
		req := &oai.ChatCompletionNewParams{
			Model: oai.ChatModel(args[0]),
			Messages: []oai.ChatCompletionMessageParamUnion{
				oai.UserMessage(strings.Join(args[1:], " ")),
			},
		}
		if stream {
			ts, err := s.OpenAI.StreamChatCompletion(ctx, req, opts...)
			if err != nil {
				return err
			}
			defer ts.Close()
			for token := range ts.Tokens() {
				if c, ok := openai.ParseChatChunk(token); ok && len(c.Choices) > 0 {
					fmt.Print(c.Choices[0].Delta.Content)
				}
			}
			fmt.Println()
			return ts.Err()
		}

		resp, err := s.OpenAI.GenerateChatCompletion(ctx, req, opts...)
		if err != nil {
			return err
		}
		if len(resp.Choices) > 0 {
			fmt.Println(resp.Choices[0].Message.Content)
		}

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
