package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	verifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schoolchat",
		Subsystem: "ai",
		Name:      "verification_duration_seconds",
		Help:      "Duration of verification oracle requests",
	}, []string{"model"})

	verifyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolchat",
		Subsystem: "ai",
		Name:      "verification_fallbacks_total",
		Help:      "Number of oracle calls converted to the unverified fallback",
	}, []string{"model", "reason"})
)

// OpenAIVerifierConfig defines configuration for the LLM-backed oracle.
type OpenAIVerifierConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAIVerifier implements Verifier against a chat-completion API in JSON
// mode. Every failure path degrades to the unverified verdict; the caller
// never sees an error.
type OpenAIVerifier struct {
	client *openai.Client
	cfg    OpenAIVerifierConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIVerifier builds the oracle. An API key is required up front so
// misconfiguration is caught at startup rather than per request.
func NewOpenAIVerifier(cfg OpenAIVerifierConfig) (*OpenAIVerifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIVerifier{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/schoolchat-api/pkg/ai/verifier"),
		logger: logger.With().Str("component", "openai_verifier").Logger(),
	}, nil
}

const verifierSystemPrompt = "You are a verifier ensuring student answers match official school rules. " +
	"You only return JSON with keys verificationResult, explanation, officialSourceIds. " +
	"verificationResult is one of confirmed, partially_correct, incorrect."

// Verify asks the model for a verdict. Network, parse, and shape failures
// all yield the unverified fallback with a failure reason.
func (v *OpenAIVerifier) Verify(parent context.Context, input VerificationInput) Verdict {
	ctx, span := v.tracer.Start(parent, "oracle.verify", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.String("message_id", input.MessageID),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       v.cfg.Model,
		MaxTokens:   v.cfg.MaxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: verifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildVerifierPrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := v.client.CreateChatCompletion(ctx, request)
	verifyDuration.WithLabelValues(v.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return v.fallback(span, "request_failed", fmt.Sprintf("verification oracle unavailable: %v", err))
	}

	if len(resp.Choices) == 0 {
		return v.fallback(span, "empty_response", "verification oracle returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	verdict, err := parseVerifierResponse(content)
	if err != nil {
		return v.fallback(span, "parse_failed", err.Error())
	}

	return verdict
}

func (v *OpenAIVerifier) fallback(span trace.Span, reason, detail string) Verdict {
	verifyFallbacks.WithLabelValues(v.cfg.Model, reason).Inc()
	span.SetStatus(codes.Error, detail)
	v.logger.Warn().Str("reason", reason).Msg(detail)
	return Verdict{Successful: false, FailureReason: detail}
}

func buildVerifierPrompt(input VerificationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Message to verify:\n")
	builder.WriteString(input.Content)
	builder.WriteString("\n\nOfficial rules for the school:\n")
	for _, rule := range input.Rules {
		builder.WriteString(fmt.Sprintf("- [%s] %s: %s\n", rule.ID, rule.Title, rule.Content))
	}
	builder.WriteString("\nDecide if the message matches the rules. Respond with:\n")
	builder.WriteString("- verificationResult: one of confirmed | partially_correct | incorrect\n")
	builder.WriteString("- explanation: short neutral justification referencing rule ids\n")
	builder.WriteString("- officialSourceIds: array of rule ids used.")
	return builder.String()
}

func parseVerifierResponse(content string) (Verdict, error) {
	type payload struct {
		VerificationResult string   `json:"verificationResult"`
		Explanation        string   `json:"explanation"`
		OfficialSourceIDs  []string `json:"officialSourceIds"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return Verdict{}, fmt.Errorf("parse verification json: %w", err)
	}

	if !validResult(data.VerificationResult) {
		return Verdict{}, fmt.Errorf("verification oracle returned unknown result %q", data.VerificationResult)
	}

	return Verdict{
		Successful:  true,
		Result:      data.VerificationResult,
		Explanation: data.Explanation,
		SourceIDs:   data.OfficialSourceIDs,
	}, nil
}
