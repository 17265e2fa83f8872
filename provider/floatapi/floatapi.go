package floatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrBackend marks transport failures, non-2xx replies and malformed envelopes.
var ErrBackend = errors.New("query backend")

const responseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "result": {"type": ["array", "string", "null"]},
    "query_description": {"type": ["string", "null"]},
    "error": {"type": ["string", "null"]}
  }
}`

var (
	compileOnce    sync.Once
	responseSchema *jsonschema.Schema
	compileErr     error
)

// ResponseSchema returns the compiled JSON Schema for query service replies.
func ResponseSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("query_response.json", strings.NewReader(responseSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("query_response.json")
		if err != nil {
			compileErr = fmt.Errorf("compile response schema: %w", err)
			return
		}
		responseSchema = schema
	})
	return responseSchema, compileErr
}

// Config configures the HTTP client.
type Config struct {
	BaseURL   string
	QueryPath string
	APIKey    string
	Timeout   time.Duration
}

// Client talks to the FloatChat query service over HTTP.
type Client struct {
	config Config
	client *http.Client
}

// New creates a client. It does not retry.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.QueryPath == "" {
		cfg.QueryPath = "/api/query"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask sends question and returns the decoded envelope. The envelope may still
// carry an error field or a textual result; judging that is left to the caller.
func (c *Client) Ask(ctx context.Context, question string) (*models.QueryResponse, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.QueryPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBackend, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := data
		if len(snippet) > 4096 {
			snippet = snippet[:4096]
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrBackend, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return DecodeResponse(data)
}

// DecodeResponse validates data against the response schema and decodes it.
func DecodeResponse(data []byte) (*models.QueryResponse, error) {
	schema, err := ResponseSchema()
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrBackend, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: response does not match schema: %v", ErrBackend, err)
	}
	var out models.QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBackend, err)
	}
	return &out, nil
}
