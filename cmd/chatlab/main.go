package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/chatlab/internal/handler"
	appI18n "github.com/pavelanni/chatlab/internal/i18n"
	"github.com/pavelanni/chatlab/internal/llm"
	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/scheduler"
	"github.com/pavelanni/chatlab/internal/store"
	"github.com/pavelanni/chatlab/internal/transcript"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatlab",
		Short: "AI conversation activities for courses",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), transcriptCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `chatlab --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP activity server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "chatlab.db", "SQLite database path")
	f.StringSlice("activities", nil, "Paths to activities JSON files (repeatable)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "Default LLM model (activity channel overrides)")
	f.Duration("llm-timeout", 60*time.Second, "Per-request LLM timeout (0 = none)")
	f.StringP("lang", "l", "en", "UI message language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set CHATLAB_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all conversations as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "chatlab.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <conversation-id>",
		Short: "Render one conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}
	f := cmd.Flags()
	f.String("db", "chatlab.db", "SQLite database path")
	f.String("format", "text", "Output format (text, pdf)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
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

	v.SetEnvPrefix("CHATLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("chatlab")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/chatlab")
	v.AddConfigPath("/etc/chatlab")
	v.AddConfigPath("/data")
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

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Load activities from all specified files.
	if err := loadActivities(db, v.GetStringSlice("activities")); err != nil {
		return fmt.Errorf("load activities: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create the LLM client.
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		v.GetDuration("llm-timeout"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	appCfg := model.AppConfig{
		SecureCookies: v.GetBool("secure-cookies"),
	}

	h := handler.New(db, llmClient, appCfg)

	// Purge expired auth sessions nightly.
	sched := scheduler.New()
	if err := sched.AddJob("0 3 * * *", "session-cleanup", db.CleanupExpiredSessions); err != nil {
		return fmt.Errorf("schedule session cleanup: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllActivities()
	if err != nil {
		return fmt.Errorf("export conversations: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runTranscript(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	conversationID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation ID %q", args[0])
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	t, err := transcript.NewExporter(db).Build(conversationID)
	if err != nil {
		return fmt.Errorf("build transcript: %w", err)
	}
	if t == nil {
		return fmt.Errorf("conversation %d not found", conversationID)
	}

	var renderer transcript.Renderer
	switch v.GetString("format") {
	case "pdf":
		renderer = transcript.PDFRenderer{}
	case "text":
		renderer = transcript.TextRenderer{}
	default:
		return fmt.Errorf("unknown format %q", v.GetString("format"))
	}

	doc, err := renderer.Render(*t)
	if err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}

	outPath := v.GetString("output")
	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.Write(doc)
		return err
	}
	return os.WriteFile(outPath, doc, 0o644)
}

func loadActivities(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("activities file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("activities file changed since last import, skipping to avoid breaking existing conversations",
				"path", path)
			continue
		}

		var imports []model.ActivityImport
		if err := json.Unmarshal(data, &imports); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, ai := range imports {
			_, err := db.InsertActivity(model.Activity{
				CourseID:                  1,
				Name:                      ai.Name,
				SystemPrompt:              ai.SystemPrompt,
				Channel:                   ai.Channel,
				MaxAttempts:               ai.MaxAttempts,
				MaxInteractions:           ai.MaxInteractions,
				CompletionAttemptsEnabled: ai.CompletionAttemptsEnabled,
				CompletionAttempts:        ai.CompletionAttempts,
				CompletionShareEnabled:    ai.CompletionShareEnabled,
			})
			if err != nil {
				return fmt.Errorf("insert activity from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported activities", "path", path, "count", len(imports))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or CHATLAB_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
