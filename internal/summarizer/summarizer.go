// Package summarizer turns a batch of commit messages into an Artifact with
// a language model.
//
// Summarize never fails. An empty batch yields EmptyArtifact without calling
// the model, and any model, decoding or validation failure (including a
// panic inside the strategy) yields ErrorArtifact after the cause is logged.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/llm"
	"github.com/ishaan812/changelog/internal/prompts"
)

// Summarizer converts ordered commit messages into an Artifact.
type Summarizer interface {
	Summarize(ctx context.Context, messages []string) Artifact
}

// Strategy selects how the model is asked for the artifact.
type Strategy string

const (
	// StrategySchema asks for a JSON object matching ArtifactSchema.
	StrategySchema Strategy = "schema"
	// StrategyFreeText asks for Name/Description/Tags lines.
	StrategyFreeText Strategy = "freetext"

	DefaultStrategy = StrategyFreeText
	DefaultTimeout  = 120 * time.Second
)

// ParseStrategy validates a configured strategy name. Empty means the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultStrategy, nil
	case StrategySchema:
		return StrategySchema, nil
	case StrategyFreeText:
		return StrategyFreeText, nil
	default:
		return "", fmt.Errorf("unknown summarizer strategy %q (want %q or %q)", s, StrategySchema, StrategyFreeText)
	}
}

// ArtifactSchema is the shape requested from structured-output providers.
var ArtifactSchema = &llm.Schema{
	Name: "commit_summary",
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"name":        {Type: llm.TypeString, Description: "A short, descriptive title for the changes"},
		"description": {Type: llm.TypeString, Description: "A brief summary of the main changes and their purpose"},
		"tags":        {Type: llm.TypeArray, Description: "An array of relevant tags", Items: &llm.Schema{Type: llm.TypeString}},
	},
	Required: []string{"name", "description", "tags"},
}

// LLMSummarizer implements Summarizer on top of an llm.Client.
type LLMSummarizer struct {
	client   llm.Client
	strategy Strategy
	timeout  time.Duration
}

// Option configures an LLMSummarizer.
type Option func(*LLMSummarizer)

// WithStrategy picks the output strategy.
func WithStrategy(s Strategy) Option {
	return func(l *LLMSummarizer) { l.strategy = s }
}

// WithTimeout bounds each model call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(l *LLMSummarizer) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// New creates a summarizer using client.
func New(client llm.Client, opts ...Option) *LLMSummarizer {
	l := &LLMSummarizer{
		client:   client,
		strategy: DefaultStrategy,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Strategy returns the configured strategy.
func (l *LLMSummarizer) Strategy() Strategy {
	return l.strategy
}

// Summarize implements Summarizer.
func (l *LLMSummarizer) Summarize(ctx context.Context, messages []string) (artifact Artifact) {
	if len(messages) == 0 {
		klog.V(2).InfoS("No commits to summarize")
		return EmptyArtifact()
	}

	defer func() {
		if r := recover(); r != nil {
			klog.ErrorS(fmt.Errorf("panic: %v", r), "Summarization panicked", "strategy", l.strategy, "commits", len(messages))
			artifact = ErrorArtifact()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch l.strategy {
	case StrategySchema:
		artifact, err = l.summarizeSchema(ctx, messages)
	case StrategyFreeText:
		artifact, err = l.summarizeFreeText(ctx, messages)
	default:
		err = fmt.Errorf("unknown summarizer strategy %q", l.strategy)
	}
	if err != nil {
		klog.ErrorS(err, "Summarization failed", "strategy", l.strategy, "commits", len(messages))
		return ErrorArtifact()
	}

	klog.V(2).InfoS("Summarized commits", "strategy", l.strategy, "commits", len(messages), "name", artifact.Name, "duration", time.Since(start))
	return artifact
}

func (l *LLMSummarizer) summarizeSchema(ctx context.Context, messages []string) (Artifact, error) {
	prompt := prompts.BuildSchemaSummaryPrompt(messages)

	var (
		response string
		err      error
	)
	if sc, ok := l.client.(llm.StructuredClient); ok {
		response, err = sc.CompleteJSON(ctx, prompts.SummarySystemPrompt()+"\n\n"+prompt, ArtifactSchema)
	} else {
		response, err = l.client.ChatComplete(ctx, []llm.Message{
			{Role: "system", Content: prompts.SummarySystemPrompt()},
			{Role: "user", Content: prompt},
		})
	}
	if err != nil {
		return Artifact{}, err
	}
	return ParseJSON(response)
}

func (l *LLMSummarizer) summarizeFreeText(ctx context.Context, messages []string) (Artifact, error) {
	response, err := l.client.ChatComplete(ctx, []llm.Message{
		{Role: "system", Content: prompts.SummarySystemPrompt()},
		{Role: "user", Content: prompts.BuildFreeTextSummaryPrompt(messages)},
	})
	if err != nil {
		return Artifact{}, err
	}
	return ParseFreeText(response), nil
}
