// Package main provides the process-boundary entry point for the
// reasoning pipeline. It reads one JSON document from a file path argument
// or standard input, runs the matching reasoning operation, and emits the
// result as a single JSON line on stdout. Logs go to stderr so stdout
// stays machine-readable.
//
// A document carrying "mode": "any_report" selects any-report reasoning
// over its "abnormalities" field; any other document is passed whole as
// the structured lab input.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/config"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/reasoning"
	"github.com/thirdop-reasoning-server/pkg/external"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	raw, err := readInput(args, stdin)
	if err != nil {
		emit(stdout, domain.NewErrorResult("Failed to read input: "+err.Error()))
		return 1
	}

	// An empty stdin degrades to an empty lab document rather than a
	// parse error.
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		emit(stdout, domain.NewErrorResult("Invalid input JSON: "+err.Error()))
		return 1
	}

	cfg := config.LoadLiteConfig()
	logger := newLogger(cfg)

	service := reasoning.NewService(logger,
		external.NewOllamaClient(cfg.Ollama),
		external.NewOllamaClient(cfg.AnyReport),
		nil,
	)

	ctx := context.Background()

	// Any parsed document reaches the pipeline. A non-object top level has
	// no mode field to dispatch on; the prompt builder renders it as {}.
	document, _ := parsed.(map[string]interface{})
	if document == nil {
		emit(stdout, service.ReasonAboutLabs(ctx, nil))
		return 0
	}

	if mode, _ := document["mode"].(string); mode == string(domain.KindAnyReport) {
		abnormalities, _ := document["abnormalities"].([]interface{})
		emit(stdout, service.ReasonAboutAnyReport(ctx, abnormalities))
		return 0
	}

	emit(stdout, service.ReasonAboutLabs(ctx, document))
	return 0
}

// readInput returns the input document: the named file when a path
// argument is given, stdin otherwise.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newLogger(cfg *config.LiteConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// emit writes the result as one JSON line.
func emit(stdout io.Writer, result interface{}) {
	encoded, err := json.Marshal(result)
	if err != nil {
		// Results are plain structs; this cannot realistically fail.
		fmt.Fprintln(stdout, `{"error":true,"message":"failed to encode result","concerns":[]}`)
		return
	}
	fmt.Fprintln(stdout, string(encoded))
}
