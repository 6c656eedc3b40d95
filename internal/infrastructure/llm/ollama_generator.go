package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/config"
	"github.com/legalintake/backend/internal/infrastructure/telemetry"
)

const generatePath = "/api/generate"

// OllamaGenerator implements questionnaire.SummaryGenerator against an
// Ollama-compatible completion endpoint. Failures surface as errors; the
// workflow engine substitutes its local fallback, so this client never
// retries past its budget or blocks beyond the context deadline.
type OllamaGenerator struct {
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewOllamaGenerator creates a summary generator from LLM settings
func NewOllamaGenerator(cfg config.LLMConfig, log *zap.Logger) *OllamaGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OllamaGenerator{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("llm"),
	}
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces summary text for one completed part
func (g *OllamaGenerator) Generate(ctx context.Context, req questionnaire.SummaryRequest) (text string, err error) {
	prompt := buildSummaryPrompt(req)

	scope := telemetry.NewProfilingScope(nil).
		WithOperation("generate_summary").
		WithWorkflowStep(strconv.Itoa(req.PartNumber))
	scope.Run(ctx, func(ctx context.Context) {
		text, err = g.generateWithRetry(ctx, prompt, req.PartNumber)
	})
	return text, err
}

func (g *OllamaGenerator) generateWithRetry(ctx context.Context, prompt string, part int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		text, err := g.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		g.logger.Warn("summary generation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("part", part),
			zap.Error(err))
	}
	return "", lastErr
}

func (g *OllamaGenerator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": g.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: unexpected status %d: %s", resp.StatusCode, truncateForError(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("llm: failed to parse response: %w", err)
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", fmt.Errorf("llm: empty completion")
	}
	return text, nil
}

// buildSummaryPrompt renders the part's Q&A pairs in catalog order plus any
// revision feedback into a single completion prompt.
func buildSummaryPrompt(req questionnaire.SummaryRequest) string {
	ids := make([]string, 0, len(req.Answers))
	for id := range req.Answers {
		ids = append(ids, id)
	}
	// shorter IDs first so q6..q9 precede q10
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "你是一名交通事故法律咨询助手。请根据以下问答内容，为「%s」部分生成一段简洁、准确的中文摘要。\n\n", req.PartName)
	if len(ids) == 0 {
		b.WriteString("该部分没有收集到问答内容，请生成一句说明该部分为空的摘要。\n")
	}
	for _, id := range ids {
		answer := req.Answers[id]
		questionText := id
		if q, ok := req.Questions[id]; ok {
			questionText = q.Text
		}
		fmt.Fprintf(&b, "问：%s\n答：%s\n", questionText, answer.Value.String())
	}
	if req.Feedback != "" {
		fmt.Fprintf(&b, "\n用户对上一版摘要的修改意见：%s\n请在新摘要中落实这些意见。\n", req.Feedback)
	}
	b.WriteString("\n只输出摘要正文，不要输出任何解释或前缀。")
	return b.String()
}

func truncateForError(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
