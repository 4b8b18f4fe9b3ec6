// Package safety wraps the external content-safety classifier. The
// classifier's blocked determination is authoritative for hard-blocking a
// message before it reaches the transport.
package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	apiVersion = "2023-10-01"
	// Severity at or above this level in any category blocks the text.
	blockThreshold = 3
)

// ErrNotConfigured indicates the classifier endpoint or key is missing.
// Call sites decide whether to fail open or closed; the send path fails
// closed.
var ErrNotConfigured = errors.New("content safety classifier is not configured")

// Result is the classifier's verdict for one piece of text.
type Result struct {
	Blocked    bool           `json:"blocked"`
	Categories map[string]int `json:"categories"`
}

// Classifier analyzes text for policy violations.
type Classifier interface {
	Analyze(ctx context.Context, text string) (Result, error)
}

// Config holds the classifier connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type restClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   zerolog.Logger
}

// NewClassifier builds a REST classifier client. Misconfiguration is not an
// error here; Analyze reports ErrNotConfigured so callers can apply their
// own open/closed policy.
func NewClassifier(cfg Config, logger zerolog.Logger) Classifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	return &restClassifier{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "safety_classifier").Logger(),
	}
}

type analyzeRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
	OutputType string   `json:"outputType"`
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

func (c *restClassifier) Analyze(ctx context.Context, text string) (Result, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return Result{}, ErrNotConfigured
	}

	payload, err := json.Marshal(analyzeRequest{
		Text:       text,
		Categories: []string{"Hate", "Violence", "SelfHarm", "Sexual"},
		OutputType: "FourSeverityLevels",
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal safety request: %w", err)
	}

	url := fmt.Sprintf("%scontentsafety/text:analyze?api-version=%s", c.endpoint, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build safety request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("safety request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("safety request returned status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode safety response: %w", err)
	}

	result := Result{Categories: make(map[string]int, len(decoded.CategoriesAnalysis))}
	for _, item := range decoded.CategoriesAnalysis {
		result.Categories[item.Category] = item.Severity
		if item.Severity >= blockThreshold {
			result.Blocked = true
		}
	}

	return result, nil
}

// Disabled is an explicit stand-in for local development with no classifier
// configured. Every call reports ErrNotConfigured.
type Disabled struct{}

// Analyze always fails with ErrNotConfigured.
func (Disabled) Analyze(context.Context, string) (Result, error) {
	return Result{}, ErrNotConfigured
}
