package generator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const cliTimeout = 3 * time.Minute

// CLIClient drafts through a locally installed claude binary. Useful in
// development where no API key is configured.
type CLIClient struct {
	path    string
	timeout time.Duration
	log     *zap.Logger
}

func NewCLIClient(path string, log *zap.Logger) *CLIClient {
	if path == "" {
		path = "claude"
	}
	return &CLIClient{path: path, timeout: cliTimeout, log: log}
}

// Generate runs one non-interactive turn, feeding the user prompt on stdin.
// Token usage is not reported by the CLI and stays zero.
func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"--print",
		"--output-format", "text",
		"--system-prompt", systemPrompt,
		"--max-turns", "1",
	}
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(userPrompt)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	start := time.Now()
	err := cmd.Run()
	c.log.Debug("claude cli finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stdout_bytes", out.Len()),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("claude cli: %w", ctx.Err())
		}
		return nil, fmt.Errorf("claude cli: %w: %s", err, strings.TrimSpace(errOut.String()))
	}

	content := strings.TrimSpace(out.String())
	if content == "" {
		return nil, fmt.Errorf("claude cli returned no output")
	}
	return &LLMResponse{Content: content}, nil
}
