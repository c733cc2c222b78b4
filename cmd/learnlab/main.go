package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/learnlab/internal/catalog"
	"github.com/pavelanni/learnlab/internal/grading"
	"github.com/pavelanni/learnlab/internal/handler"
	appI18n "github.com/pavelanni/learnlab/internal/i18n"
	"github.com/pavelanni/learnlab/internal/llm"
	"github.com/pavelanni/learnlab/internal/llm/prompts"
	"github.com/pavelanni/learnlab/internal/model"
	"github.com/pavelanni/learnlab/internal/roster"
	"github.com/pavelanni/learnlab/internal/store"
)

const tokenCleanupInterval = time.Hour

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "learnlab",
		Short: "Course content and exam grading service",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd(), studentsCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `learnlab --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(f *pflag.FlagSet) {
	f.String("db", "learnlab.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default language for messages and suggestions (en, zh)")
	f.StringSliceP("catalog", "c", nil, "Catalog JSON files to load (repeatable, default: embedded catalog)")
	f.String("admin-password", "", "Initial admin password (or set LEARNLAB_ADMIN_PASSWORD)")
	f.String("default-student-password", "123456", "Password given to students created without one")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables lesson generation)")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Lesson prompt variant (concise, standard, detailed)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load course catalogs into the database",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringSliceP("catalog", "c", nil, "Catalog JSON files to load (repeatable, default: embedded catalog)")
	return cmd
}

func studentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage the student roster",
	}

	imp := &cobra.Command{
		Use:   "import <roster.xlsx>",
		Short: "Import students from an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runStudentsImport,
	}
	addCommonFlags(imp.Flags())
	imp.Flags().String("default-student-password", "123456", "Password given to newly imported students")

	exp := &cobra.Command{
		Use:   "export",
		Short: "Export active students to an Excel workbook",
		RunE:  runStudentsExport,
	}
	addCommonFlags(exp.Flags())
	exp.Flags().StringP("output", "o", "students.xlsx", "Output file path")

	tmpl := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import template",
		RunE:  runStudentsTemplate,
	}
	tmpl.Flags().StringP("output", "o", "student_import_template.xlsx", "Output file path")
	tmpl.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	tmpl.Flags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(imp, exp, tmpl)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all submissions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
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

	v.SetEnvPrefix("LEARNLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("learnlab")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/learnlab")
	v.AddConfigPath("/etc/learnlab")
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

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func loadCatalog(db *store.Store, paths []string) error {
	loader := catalog.NewLoader(db, llm.LocalLesson)
	if len(paths) == 0 {
		return loader.LoadDefault()
	}
	return loader.LoadFiles(paths)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := loadCatalog(db, v.GetStringSlice("catalog")); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		promptVariant,
		lang,
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if llmClient != nil {
		if err := llmClient.Ping(context.Background()); err != nil {
			slog.Warn("LLM health check failed, lessons fall back to local generation", "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		}
	}

	engine := grading.New(db, db,
		grading.WithPhrasebook(appI18n.NewPhrasebook(lang)),
		grading.WithTokens(appI18n.Tokens(lang)),
	)
	cfg := model.ServerConfig{
		Lang:                   lang,
		DefaultStudentPassword: v.GetString("default-student-password"),
		PromptVariant:          promptVariant,
	}
	h, err := handler.New(db, engine, roster.New(db, cfg.DefaultStudentPassword), llmClient, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	go cleanupTokens(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Accept-Language"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"llm", llmClient != nil,
		"model", v.GetString("llm-model"),
		"prompt_variant", promptVariant,
	)
	return http.ListenAndServe(addr, r)
}

func cleanupTokens(db *store.Store) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		n, err := db.CleanupExpiredTokens()
		if err != nil {
			slog.Error("failed to clean up auth tokens", "error", err)
			continue
		}
		if n > 0 {
			slog.Info("removed expired auth tokens", "count", n)
		}
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	return loadCatalog(db, v.GetStringSlice("catalog"))
}

func runStudentsImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	result, err := roster.New(db, v.GetString("default-student-password")).Import(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	for _, e := range result.Errors {
		slog.Warn("skipped roster row", "detail", e)
	}
	slog.Info("imported students", "path", args[0], "imported", result.Imported, "updated", result.Updated, "errors", len(result.Errors))
	return nil
}

func runStudentsExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := roster.New(db, "").Export()
	if err != nil {
		return fmt.Errorf("export students: %w", err)
	}
	return writeFile(v.GetString("output"), data)
}

func runStudentsTemplate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := roster.Template()
	if err != nil {
		return fmt.Errorf("build template: %w", err)
	}
	return writeFile(v.GetString("output"), data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("wrote file", "path", path, "bytes", len(data))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.ExportSubmissions()
	if err != nil {
		return fmt.Errorf("export submissions: %w", err)
	}

	export := model.SubmissionExport{
		GeneratedAt: time.Now().UTC(),
		Count:       len(results),
		Results:     results,
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

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
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
		return fmt.Errorf("admin password is required: set --admin-password flag or LEARNLAB_ADMIN_PASSWORD env var")
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
		Status:       model.UserStatusActive,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
