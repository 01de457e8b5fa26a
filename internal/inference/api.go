package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/temirov/docsmith/internal/types"
)

const apiErrorFormat = "generate with %s via %s: %v: %w"

// APIProvider calls the runtime's HTTP generate endpoint.
type APIProvider struct {
	client     *api.Client
	host       string
	NewTracker TrackerFactory
}

// NewAPIProvider connects to host. An empty host falls back to the OLLAMA_HOST environment
// variable and then to the runtime's default address.
func NewAPIProvider(host string, httpClient *http.Client, trackerFactory TrackerFactory) (*APIProvider, error) {
	if strings.TrimSpace(host) == "" {
		client, clientError := api.ClientFromEnvironment()
		if clientError != nil {
			return nil, fmt.Errorf("configure runtime client: %w", clientError)
		}
		return &APIProvider{client: client, host: "environment", NewTracker: trackerFactory}, nil
	}
	parsedURL, parseError := url.Parse(host)
	if parseError != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid runtime host %q", host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIProvider{client: api.NewClient(parsedURL, httpClient), host: host, NewTracker: trackerFactory}, nil
}

// Name identifies the provider in logs.
func (provider *APIProvider) Name() string {
	return providerKindAPI + ":" + provider.host
}

// Generate sends a non-streaming generate request and returns the full response text.
func (provider *APIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	var tracker Tracker
	if provider.NewTracker != nil {
		tracker = provider.NewTracker(model)
	}
	if tracker != nil {
		tracker.Start()
	}

	streamResponses := false
	request := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &streamResponses,
	}
	var responseBuilder strings.Builder
	generateError := provider.client.Generate(ctx, request, func(response api.GenerateResponse) error {
		responseBuilder.WriteString(response.Response)
		return nil
	})
	if tracker != nil {
		tracker.Stop(generateError == nil)
	}
	if generateError != nil {
		var statusError api.StatusError
		if errors.As(generateError, &statusError) {
			message := statusError.ErrorMessage
			if message == "" {
				message = statusError.Status
			}
			return "", &ProcessError{Source: provider.host, ExitCode: statusError.StatusCode, Message: message}
		}
		if contextError := ctx.Err(); contextError != nil {
			return "", contextError
		}
		return "", fmt.Errorf(apiErrorFormat, model, provider.host, generateError, types.ErrProcessFailure)
	}
	return responseBuilder.String(), nil
}
