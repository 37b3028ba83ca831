package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// dangerousChars is the blacklist spec.md §6 requires: "arguments are
// validated against a dangerous-character blacklist." Every argument
// handed to an external tool — in particular the file path — is checked
// before the process is spawned, even though exec.Command never invokes
// a shell and so is not vulnerable to injection in the traditional
// sense.
var dangerousChars = []string{";", "|", "&", "$", "`", "\n", "\r"}

// validateArgs rejects any argument containing a blacklisted character.
// It does not check for a leading "-".
func validateArgs(args []string) error {
	for _, a := range args {
		for _, bad := range dangerousChars {
			if strings.Contains(a, bad) {
				return fmt.Errorf("argument contains disallowed character %q: %q", bad, a)
			}
		}
	}
	return nil
}

// toolResult is the raw outcome of one external-tool invocation.
type toolResult struct {
	Stdout   string
	Stderr   string
	Combined string
	TimedOut bool
	ExitCode int
	Duration time.Duration
}

// runTool invokes name with args, enforcing timeout and capturing
// stdout+stderr separately (and combined, for classification that does
// not care which stream a line came from). No shell is used — args are
// passed as an argv slice directly to exec.Command.
func runTool(ctx context.Context, timeout time.Duration, name string, args ...string) (toolResult, error) {
	if err := validateArgs(args); err != nil {
		return toolResult{}, fmt.Errorf("probe: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr, combined bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &writeTee{&stdout, &combined}
	cmd.Stderr = &writeTee{&stderr, &combined}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := toolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		Duration: elapsed,
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		return res, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("probe: run %s: %w", name, err)
	}
	return res, nil
}

// writeTee writes to both an individual-stream buffer and a combined
// buffer in one pass, avoiding a second concatenation step later.
type writeTee struct {
	stream   *bytes.Buffer
	combined *bytes.Buffer
}

func (w *writeTee) Write(p []byte) (int, error) {
	w.stream.Write(p)
	return w.combined.Write(p)
}
