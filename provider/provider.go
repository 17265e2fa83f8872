package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/floatchat/config"
	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/mohammad-safakhou/floatchat/provider/floatapi"
)

// ErrBackend marks failures reported by or on the way to the query service.
var ErrBackend = floatapi.ErrBackend

// Client represents different query service implementations
type Client string

const (
	FloatAPI Client = "floatapi"
)

// QueryClient sends a natural-language question to the query service.
// Implementations make exactly one round trip per call; retrying is the
// caller's decision.
type QueryClient interface {
	Ask(ctx context.Context, question string) (*models.QueryResponse, error)
}

// QueryClientFunc adapts a function to QueryClient.
type QueryClientFunc func(ctx context.Context, question string) (*models.QueryResponse, error)

func (f QueryClientFunc) Ask(ctx context.Context, question string) (*models.QueryResponse, error) {
	return f(ctx, question)
}

// NewQueryClient creates a query client for cfg.
func NewQueryClient(client Client, cfg config.BackendConfig) (QueryClient, error) {
	switch Client(strings.ToLower(string(client))) {
	case FloatAPI, "":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("backend.base_url not set")
		}
		return floatapi.New(floatapi.Config{
			BaseURL:   cfg.BaseURL,
			QueryPath: cfg.QueryPath,
			APIKey:    cfg.APIKey,
			Timeout:   cfg.Timeout,
		}), nil
	}
	return nil, fmt.Errorf("unsupported query client: %s", client)
}
