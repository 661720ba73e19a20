package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-chunkscribe/internal/apierr"
	"github.com/alnah/go-chunkscribe/internal/logging"
)

// DefaultOpenAIModel is the only OpenAI model that returns timed segments.
const DefaultOpenAIModel = openai.Whisper1

// Default retry configuration.
const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second

	// defaultHTTPTimeout bounds one upload; chunks are minutes long at most
	// for typical worker counts.
	defaultHTTPTimeout = 5 * time.Minute
)

// audioTranscriber is the subset of *openai.Client used here.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Engine           = (*OpenAIEngine)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIEngine transcribes audio with the OpenAI transcription API.
// Transient API errors are retried with exponential backoff.
type OpenAIEngine struct {
	client     audioTranscriber
	model      string
	language   string
	prompt     string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     zerolog.Logger
}

// OpenAIOption configures an OpenAIEngine.
type OpenAIOption func(*OpenAIEngine)

// WithModel sets the model name. Empty keeps the default.
func WithModel(model string) OpenAIOption {
	return func(e *OpenAIEngine) {
		if model != "" {
			e.model = model
		}
	}
}

// WithLanguage sets the ISO 639-1 language hint. Empty means auto-detect.
func WithLanguage(code string) OpenAIOption {
	return func(e *OpenAIEngine) { e.language = code }
}

// WithPrompt sets a vocabulary hint sent with every chunk.
func WithPrompt(prompt string) OpenAIOption {
	return func(e *OpenAIEngine) { e.prompt = prompt }
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) OpenAIOption {
	return func(e *OpenAIEngine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) OpenAIOption {
	return func(e *OpenAIEngine) {
		if base > 0 {
			e.baseDelay = base
		}
		if max > 0 {
			e.maxDelay = max
		}
	}
}

// WithOpenAILogger sets the logger reporting retries.
func WithOpenAILogger(l zerolog.Logger) OpenAIOption {
	return func(e *OpenAIEngine) { e.logger = l }
}

// NewOpenAIEngine creates an engine authenticated with apiKey.
func NewOpenAIEngine(apiKey string, opts ...OpenAIOption) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	return newOpenAIEngine(openai.NewClientWithConfig(cfg), opts...), nil
}

func newOpenAIEngine(client audioTranscriber, opts ...OpenAIOption) *OpenAIEngine {
	e := &OpenAIEngine{
		client:     client,
		model:      DefaultOpenAIModel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe uploads audioPath and returns its timed segments.
// A response without segments becomes a single segment spanning the file.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   e.prompt,
		Language: e.language,
	}

	cfg := apierr.RetryConfig{
		MaxRetries: e.maxRetries,
		BaseDelay:  e.baseDelay,
		MaxDelay:   e.maxDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.logger.Warn().Err(err).
				Int("attempt", attempt).
				Dur("delay", delay).
				Str(logging.FieldPath, audioPath).
				Msg("retrying transcription")
		},
	}

	resp, err := apierr.RetryWithBackoff(ctx, cfg, func() (openai.AudioResponse, error) {
		resp, err := e.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, classifyError(err)
		}
		return resp, nil
	}, apierr.IsRetryable)
	if err != nil {
		return nil, err
	}

	return responseSegments(resp), nil
}

// responseSegments converts a verbose_json response.
func responseSegments(resp openai.AudioResponse) []Segment {
	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil
		}
		return []Segment{{Start: 0, End: resp.Duration, Text: resp.Text}}
	}

	segments := make([]Segment, len(resp.Segments))
	for i, s := range resp.Segments {
		segments[i] = Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return segments
}

// classifyError maps go-openai errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apierr.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return apierr.FromStatus(reqErr.HTTPStatusCode, fmt.Sprint(reqErr.Err))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}
