package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"inkwell/internal/config"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/service/llm"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// Interactive prompt for exercising generation providers without the
// HTTP surface. Type a prompt, watch the deltas stream.
type cli struct {
	registry *llm.Registry
	scanner  *bufio.Scanner
	model    string
	system   string
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	registry, err := llm.SetupProviders(cfg, logger)
	if err != nil {
		fmt.Printf("%sFailed to setup providers: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	c := &cli{
		registry: registry,
		scanner:  bufio.NewScanner(os.Stdin),
		model:    cfg.DefaultModel,
	}
	c.run()
}

func (c *cli) run() {
	fmt.Printf("%sinkwell stream cli%s (model: %s)\n", colorCyan, colorReset, c.model)
	fmt.Println("commands: /model <name>, /system <prompt>, /quit")

	for {
		fmt.Printf("%s> %s", colorBlue, colorReset)
		if !c.scanner.Scan() {
			return
		}
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/model "):
			c.model = strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			fmt.Printf("model set to %s\n", c.model)
		case strings.HasPrefix(line, "/system "):
			c.system = strings.TrimSpace(strings.TrimPrefix(line, "/system "))
			fmt.Println("system prompt set")
		default:
			c.stream(line)
		}
	}
}

func (c *cli) stream(prompt string) {
	provider, err := c.registry.ForModel(c.model)
	if err != nil {
		fmt.Printf("%s%v%s\n", colorRed, err, colorReset)
		return
	}

	req := &domainllm.StreamRequest{
		Model:  c.model,
		System: c.system,
		Prompt: prompt,
	}

	fmt.Print(colorGreen)
	err = provider.StreamText(context.Background(), req, func(text string) error {
		fmt.Print(text)
		return nil
	})
	fmt.Println(colorReset)

	if err != nil {
		fmt.Printf("%sstream error: %v%s\n", colorRed, err, colorReset)
	}
}
