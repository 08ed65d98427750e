// Entry point for the docmd service: DOCX→Markdown conversion over HTTP,
// with an optional MCP stdio mode and utility subcommands for watermark
// stamping and PDF export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/docmd/api"
	"github.com/hazyhaar/docmd/convert"
	"github.com/hazyhaar/docmd/pdfexport"
	"github.com/hazyhaar/docmd/taskstore"
	"github.com/hazyhaar/docmd/watermark"
)

func main() {
	setupLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if args := os.Args[1:]; len(args) > 0 {
		switch args[0] {
		case "stamp":
			runStamp(ctx, args[1:])
			return
		case "pdf":
			runPDF(ctx, args[1:])
			return
		}
	}
	runServe(ctx)
}

func setupLogging() {
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

func runServe(ctx context.Context) {
	port := env("PORT", "8085")
	mcpTransport := env("MCP_TRANSPORT", "")

	cfg := loadConfig()
	conv, err := convert.New(*cfg)
	if err != nil {
		slog.Error("converter init", "error", err)
		os.Exit(1)
	}

	store := openStore()
	defer store.Close()

	if mcpTransport == "stdio" {
		slog.Info("starting mcp server", "transport", "stdio")
		if err := convert.NewMCPServer(conv).Run(ctx, &mcp.StdioTransport{}); err != nil {
			slog.Error("mcp server", "error", err)
			os.Exit(1)
		}
		return
	}

	svcCfg := api.Config{
		Converter: conv,
		Store:     store,
		Dirs:      cfg.Dirs,
		Logger:    slog.Default(),
	}
	if user := os.Getenv("AUTH_USER"); user != "" {
		password := os.Getenv("AUTH_PASSWORD")
		if password == "" {
			slog.Error("AUTH_USER is set but AUTH_PASSWORD is empty")
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hash password", "error", err)
			os.Exit(1)
		}
		svcCfg.AuthUser = user
		svcCfg.AuthPasswordHash = string(hash)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.New(svcCfg).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func loadConfig() *convert.Config {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err := convert.LoadConfigFile(path)
		if err != nil {
			slog.Error("load config", "path", path, "error", err)
			os.Exit(1)
		}
		return cfg
	}
	return &convert.Config{
		Dirs: convert.Dirs{Base: env("DATA_DIR", "data")},
	}
}

func openStore() taskstore.Store {
	if path := os.Getenv("TASK_DB"); path != "" {
		store, err := taskstore.OpenSQLite(path)
		if err != nil {
			slog.Error("task db", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("task store", "backend", "sqlite", "path", path)
		return store
	}
	slog.Info("task store", "backend", "memory")
	return taskstore.NewMemory()
}

// runStamp watermarks every DOCX under -in into -out.
func runStamp(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("stamp", flag.ExitOnError)
	in := fs.String("in", "data/docx", "input directory of .docx files")
	out := fs.String("out", "data/stamped", "output directory")
	text := fs.String("text", "", "watermark text (default: timestamp)")
	workers := fs.Int("workers", 0, "concurrent stampings (default: GOMAXPROCS)")
	retries := fs.Int("retries", 3, "retry rounds for failed files")
	fs.Parse(args)

	entries, err := os.ReadDir(*in)
	if err != nil {
		slog.Error("read input dir", "dir", *in, "error", err)
		os.Exit(1)
	}
	var pairs []watermark.Pair
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".docx") {
			continue
		}
		pairs = append(pairs, watermark.Pair{
			Input:  filepath.Join(*in, name),
			Output: filepath.Join(*out, name),
		})
	}
	if len(pairs) == 0 {
		slog.Error("no .docx files found", "dir", *in)
		os.Exit(1)
	}

	s := watermark.New(watermark.Config{Text: *text, Logger: slog.Default()})
	results := s.StampBatch(ctx, pairs, watermark.BatchOptions{Workers: *workers, MaxRetries: *retries})

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			slog.Error("stamping failed", "input", r.Input, "attempts", r.Attempts, "error", r.Error)
		}
	}
	slog.Info("stamping finished", "total", len(results), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// runPDF renders one HTML file to a validated PDF.
func runPDF(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pdf", flag.ExitOnError)
	in := fs.String("in", "", "input HTML file")
	out := fs.String("out", "", "output PDF file (default: input with .pdf)")
	timeout := fs.Duration("timeout", 60*time.Second, "render timeout")
	fs.Parse(args)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: docmd pdf -in page.html [-out page.pdf]")
		os.Exit(2)
	}
	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".pdf"
	}

	e := pdfexport.New(pdfexport.Config{
		Timeout:    *timeout,
		BrowserBin: os.Getenv("BROWSER_BIN"),
		NoSandbox:  os.Getenv("NO_SANDBOX") == "true",
		Logger:     slog.Default(),
	})
	defer e.Close()

	if err := e.ExportFile(ctx, *in, dest); err != nil {
		slog.Error("pdf export", "error", err)
		os.Exit(1)
	}
	slog.Info("pdf written", "path", dest)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
