package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edforge/lectern/internal/analytics"
	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/genai"
	"github.com/edforge/lectern/internal/handler"
	"github.com/edforge/lectern/internal/proctor"
	"github.com/edforge/lectern/internal/store"
	"github.com/edforge/lectern/internal/transcribe"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lectern",
		Short: "Adaptive exam portal over AI-generated lecture questions",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `lectern --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "lectern.db", "SQLite database path")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for api.openai.com)")
	f.String("llm-key", "", "API key for the LLM (or set LECTERN_LLM_KEY)")
	f.String("llm-model", "gpt-4.1-mini", "LLM model used for generation and summaries")
	f.String("transcribe-url", "", "External transcription service URL (empty to use Whisper)")
	f.IntP("num-questions", "n", 10, "Default number of questions to generate per lecture")
	f.Float64("mcq-ratio", 0.6, "Default share of multiple-choice questions")
	f.Float64("fill-blank-ratio", 0.2, "Default share of fill-in-the-blank questions")
	f.Bool("skip-llm-check", false, "Skip the LLM health check at startup")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("lectern")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lectern")
	v.AddConfigPath("/etc/lectern")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	generator := genai.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if !v.GetBool("skip-llm-check") {
		if err := generator.Ping(context.Background()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	transcriber := transcribe.New(
		v.GetString("transcribe-url"),
		v.GetString("llm-url"),
		v.GetString("llm-key"),
	)

	recorder := analytics.NewRecorder()
	eng := engine.New(db, db, engine.WithNotifier(recorder))
	monitor := proctor.NewMonitor()

	h := handler.New(db, eng, generator, transcriber, monitor, recorder, handler.Config{
		NumQuestions:   v.GetInt("num-questions"),
		MCQRatio:       v.GetFloat64("mcq-ratio"),
		FillBlankRatio: v.GetFloat64("fill-blank-ratio"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"transcribe_url", v.GetString("transcribe-url"),
		"num_questions", v.GetInt("num-questions"),
	)
	return http.ListenAndServe(addr, r)
}
