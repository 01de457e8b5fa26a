// Package inference sends a prompt to a local model runtime and returns the generated text.
package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/docsmith/internal/types"
)

const (
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "deepseek-r1"

	spawnErrorFormat         = "launch %s: %v"
	exitStatusErrorFormat    = "%s exited with status %d"
	unknownProviderFormat    = "unsupported provider %q"
	providerKindCommand      = "command"
	providerKindAPI          = "api"
	providerKindAPIAliasHTTP = "http"
)

// Provider generates text for a prompt with the named model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

// Tracker reports activity while a generation call is in flight.
type Tracker interface {
	Start()
	Stop(success bool)
}

// TrackerFactory builds a Tracker labelled for one call.
type TrackerFactory func(label string) Tracker

// Kind names a Provider implementation.
type Kind string

const (
	// KindCommand launches the runtime binary as a subprocess.
	KindCommand Kind = providerKindCommand
	// KindAPI talks to the runtime over HTTP.
	KindAPI Kind = providerKindAPI
)

// ParseKind resolves a provider name, defaulting to KindCommand.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", providerKindCommand:
		return KindCommand, nil
	case providerKindAPI, providerKindAPIAliasHTTP:
		return KindAPI, nil
	default:
		return "", fmt.Errorf(unknownProviderFormat, value)
	}
}

// InvocationResult is the captured outcome of one process run.
type InvocationResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports a zero exit status.
func (result InvocationResult) Succeeded() bool {
	return result.ExitCode == 0
}

// SpawnError reports that the runtime binary could not be launched.
type SpawnError struct {
	Binary string
	Err    error
}

func (spawnError *SpawnError) Error() string {
	return fmt.Sprintf(spawnErrorFormat, spawnError.Binary, spawnError.Err)
}

func (spawnError *SpawnError) Unwrap() error {
	return spawnError.Err
}

// ProcessError reports a runtime that ran but failed. Its message is the runtime's own error text.
type ProcessError struct {
	Source   string
	ExitCode int
	Message  string
}

func (processError *ProcessError) Error() string {
	if processError.Message != "" {
		return processError.Message
	}
	return fmt.Sprintf(exitStatusErrorFormat, processError.Source, processError.ExitCode)
}

func (processError *ProcessError) Unwrap() error {
	return types.ErrProcessFailure
}
