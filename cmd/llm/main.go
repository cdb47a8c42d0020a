package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/llm/openai"
)

// Runs item extraction on a transcript file without touching the database,
// for checking prompt and model behavior.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <transcript_file> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg := common.LoadConfig()
	if err := cfg.ValidateLLM(); err != nil {
		logger.Error("config", "error", err)
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read transcript", "path", path, "error", err)
		os.Exit(1)
	}
	transcript := string(data)
	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)

	base := filepath.Base(path)
	for i := 1; i <= times; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("extract.run.start", "iter", i, "file", base, "text_len", len(transcript))

		items, raw, err := client.ExtractItems(ctx, transcript)
		cancel()
		if err != nil {
			logger.Error("extract.run.error", "iter", i, "error", err, "raw", string(raw))
		} else {
			out, _ := json.Marshal(items)
			logger.Info("extract.run.ok", "iter", i, "items", len(items), "elapsed_ms", time.Since(start).Milliseconds(), "result", string(out))
		}

		if i < times {
			time.Sleep(750 * time.Millisecond)
		}
	}

	logger.Info("done", "file", base, "times", times)
}
