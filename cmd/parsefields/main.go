package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
	"github.com/SelahattinNazli/OCR-Service/internal/llm"
	"github.com/SelahattinNazli/OCR-Service/internal/llm/ollama"
	"github.com/SelahattinNazli/OCR-Service/internal/pipeline/parsefields"
)

// One-shot extraction: reads document text and a fields declaration from
// disk, runs the pipeline once, prints the record as JSON.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 3 {
		logger.Error("usage: parsefields <text_file> <fields_json_file>")
		os.Exit(2)
	}

	rawText, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("reading text file", "path", os.Args[1], "error", err)
		os.Exit(2)
	}
	fieldsJSON, err := os.ReadFile(os.Args[2])
	if err != nil {
		logger.Error("reading fields file", "path", os.Args[2], "error", err)
		os.Exit(2)
	}
	var fields llm.FieldSpecSet
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		logger.Error("decoding fields file", "path", os.Args[2], "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	client := ollama.NewClient(ollama.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	pipeline := parsefields.NewPipeline(logger, parsefields.Config{
		FallbackKeyword: cfg.LLM.FallbackKeyword,
	}, client, nil)

	rec, err := pipeline.Run(context.Background(), string(rawText), fields)
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		logger.Error("encoding record", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
