package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/temirov/docsmith/internal/types"
)

const (
	// DefaultBinary is the runtime executable looked up on PATH.
	DefaultBinary = "ollama"

	runSubcommand = "run"
)

// Runner executes binary with arguments and captures its output. A non-zero exit is reported
// through InvocationResult.ExitCode, not as an error.
type Runner func(ctx context.Context, binary string, arguments []string) (InvocationResult, error)

// CommandProvider invokes `<binary> run <model> <prompt>` and returns its standard output.
type CommandProvider struct {
	Binary     string
	Runner     Runner
	NewTracker TrackerFactory
}

// NewCommandProvider builds a CommandProvider backed by ExecRunner.
func NewCommandProvider(binary string, trackerFactory TrackerFactory) *CommandProvider {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &CommandProvider{Binary: binary, Runner: ExecRunner, NewTracker: trackerFactory}
}

// Name identifies the provider in logs.
func (provider *CommandProvider) Name() string {
	return providerKindCommand + ":" + provider.binary()
}

// Generate runs the binary and blocks until it exits.
func (provider *CommandProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	runner := provider.Runner
	if runner == nil {
		runner = ExecRunner
	}
	var tracker Tracker
	if provider.NewTracker != nil {
		tracker = provider.NewTracker(model)
	}
	if tracker != nil {
		tracker.Start()
	}

	result, runError := runner(ctx, provider.binary(), []string{runSubcommand, model, prompt})
	succeeded := runError == nil && result.Succeeded()
	if tracker != nil {
		tracker.Stop(succeeded)
	}

	if runError != nil {
		return "", runError
	}
	if !result.Succeeded() {
		return "", &ProcessError{
			Source:   provider.binary(),
			ExitCode: result.ExitCode,
			Message:  strings.TrimSpace(result.Stderr),
		}
	}
	return result.Stdout, nil
}

func (provider *CommandProvider) binary() string {
	if strings.TrimSpace(provider.Binary) == "" {
		return DefaultBinary
	}
	return provider.Binary
}

// ExecRunner runs the binary through os/exec.
func ExecRunner(ctx context.Context, binary string, arguments []string) (InvocationResult, error) {
	resolvedPath, lookupError := exec.LookPath(binary)
	if lookupError != nil {
		return InvocationResult{}, &SpawnError{Binary: binary, Err: fmt.Errorf("%w: %w", types.ErrNotFound, lookupError)}
	}

	// #nosec G204
	command := exec.CommandContext(ctx, resolvedPath, arguments...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if startError := command.Start(); startError != nil {
		return InvocationResult{}, &SpawnError{Binary: binary, Err: startError}
	}
	waitError := command.Wait()
	result := InvocationResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if waitError == nil {
		return result, nil
	}
	var exitError *exec.ExitError
	if errors.As(waitError, &exitError) {
		if contextError := ctx.Err(); contextError != nil {
			return InvocationResult{}, contextError
		}
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return InvocationResult{}, fmt.Errorf("wait for %s: %v: %w", binary, waitError, types.ErrProcessFailure)
}
