package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOracleBaseURL = "https://openrouter.ai/api/v1"
	defaultOracleModel   = "openai/gpt-4o"
	defaultOracleTimeout = 60 * time.Second

	// Excerpt fallback length when the oracle omits excerpts.
	defaultExcerptLen = 200

	systemPrompt = "You are an expert document analyst specializing in identifying semantic inconsistencies between text passages. You must respond ONLY with valid JSON."
)

// Judge renders a tri-state judgment for one paragraph pair.
type Judge interface {
	Judge(ctx context.Context, textA, textB, titleA, titleB string) Judgment
}

// OracleJudge submits paragraph pairs to a chat-completion oracle and
// validates its structured output.
type OracleJudge struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// OracleConfig holds judge configuration.
type OracleConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewOracleJudge creates a new OracleJudge.
func NewOracleJudge(config OracleConfig) *OracleJudge {
	if config.BaseURL == "" {
		config.BaseURL = defaultOracleBaseURL
	}
	if config.Model == "" {
		config.Model = defaultOracleModel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultOracleTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &OracleJudge{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// Judge compares two paragraph texts. Transport and parsing failures yield an
// Undetermined judgment rather than an error; the orchestrator decides how to
// handle those.
func (j *OracleJudge) Judge(ctx context.Context, textA, textB, titleA, titleB string) Judgment {
	prompt := buildComparisonPrompt(textA, textB, titleA, titleB)

	content, err := j.callOracle(ctx, prompt)
	if err != nil {
		j.logger.Warn("oracle call failed", "error", err)
		return Judgment{Outcome: OutcomeUndetermined, Reason: fmt.Sprintf("oracle call: %v", err)}
	}

	judgment, err := parseOracleVerdict(content, textA, textB)
	if err != nil {
		j.logger.Warn("oracle returned malformed verdict", "error", err)
		return Judgment{Outcome: OutcomeUndetermined, Reason: fmt.Sprintf("malformed verdict: %v", err)}
	}

	if judgment.Outcome == OutcomeInconsistent {
		j.logger.Info("detected inconsistency",
			"type", judgment.Verdict.Type,
			"severity", judgment.Verdict.Severity,
		)
	}

	return judgment
}

func buildComparisonPrompt(textA, textB, titleA, titleB string) string {
	headerA := "Document A"
	if titleA != "" {
		headerA = fmt.Sprintf("Document A (%s)", titleA)
	}
	headerB := "Document B"
	if titleB != "" {
		headerB = fmt.Sprintf("Document B (%s)", titleB)
	}

	typeTokens := make([]string, len(InconsistencyTypes))
	for i, t := range InconsistencyTypes {
		typeTokens[i] = string(t)
	}
	severityTokens := make([]string, len(SeverityLevels))
	for i, s := range SeverityLevels {
		severityTokens[i] = string(s)
	}

	return fmt.Sprintf(`Analyze the following two text passages from different documents for semantic inconsistencies.

**%s:**
%s

**%s:**
%s

Your task is to determine if there is a **semantic inconsistency** between these passages. An inconsistency exists when:
- The passages contradict each other
- One passage is missing requirements or information present in the other
- Definitions or terminology conflict
- The scope of statements is inconsistent
- Data or facts mismatch

**Respond with valid JSON in the following format:**

`+"```json"+`
{
  "is_inconsistent": true/false,
  "inconsistency_type": "one of: %s",
  "severity": "one of: %s",
  "description": "Brief one-sentence description of the inconsistency",
  "explanation": "Detailed explanation of why this is inconsistent and what the conflict is",
  "recommendation": "Actionable recommendation for resolving the inconsistency",
  "source_excerpt": "The specific portion of text A that is inconsistent",
  "target_excerpt": "The specific portion of text B that is inconsistent",
  "source_start_offset": 0,
  "source_end_offset": 100,
  "target_start_offset": 0,
  "target_end_offset": 100
}
`+"```"+`

**Severity Guidelines:**
- CRITICAL: Fundamental contradictions that invalidate document validity
- HIGH: Significant conflicts that require immediate attention
- MEDIUM: Notable inconsistencies that should be addressed
- LOW: Minor discrepancies or stylistic differences

**Important:**
- If the passages are semantically consistent (even if worded differently), set `+"`is_inconsistent`"+` to `+"`false`"+`
- Only report actual semantic conflicts, not stylistic differences
- Be precise about the type of inconsistency
- Provide actionable recommendations

Respond ONLY with valid JSON, no additional text.`,
		headerA, textA, headerB, textB,
		strings.Join(typeTokens, ", "),
		strings.Join(severityTokens, ", "),
	)
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (j *OracleJudge) callOracle(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: j.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.2,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", j.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return cr.Choices[0].Message.Content, nil
}

// oracleVerdict mirrors the oracle's raw output. Every field is optional;
// the oracle is untrusted and may omit or garble any of them.
type oracleVerdict struct {
	IsInconsistent    bool   `json:"is_inconsistent"`
	InconsistencyType string `json:"inconsistency_type"`
	Severity          string `json:"severity"`
	Description       string `json:"description"`
	Explanation       string `json:"explanation"`
	Recommendation    string `json:"recommendation"`
	SourceExcerpt     string `json:"source_excerpt"`
	TargetExcerpt     string `json:"target_excerpt"`
	SourceStartOffset *int   `json:"source_start_offset"`
	SourceEndOffset   *int   `json:"source_end_offset"`
	TargetStartOffset *int   `json:"target_start_offset"`
	TargetEndOffset   *int   `json:"target_end_offset"`
}

// parseOracleVerdict decodes the oracle output and coerces it into a strict
// Verdict. Out-of-set enum tokens fall back to the documented defaults,
// missing excerpts to the first 200 characters, missing offsets to the full
// span of each input.
func parseOracleVerdict(content, textA, textB string) (Judgment, error) {
	var raw oracleVerdict
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Judgment{}, err
	}

	if !raw.IsInconsistent {
		return Judgment{Outcome: OutcomeConsistent}, nil
	}

	verdict := &Verdict{
		Type:           coerceType(raw.InconsistencyType),
		Severity:       coerceSeverity(raw.Severity),
		Description:    raw.Description,
		Explanation:    raw.Explanation,
		Recommendation: raw.Recommendation,
		SourceExcerpt:  raw.SourceExcerpt,
		TargetExcerpt:  raw.TargetExcerpt,
		SourceLocation: coerceLocation(raw.SourceStartOffset, raw.SourceEndOffset, textA),
		TargetLocation: coerceLocation(raw.TargetStartOffset, raw.TargetEndOffset, textB),
	}

	if verdict.SourceExcerpt == "" {
		verdict.SourceExcerpt = excerpt(textA)
	}
	if verdict.TargetExcerpt == "" {
		verdict.TargetExcerpt = excerpt(textB)
	}

	return Judgment{Outcome: OutcomeInconsistent, Verdict: verdict}, nil
}

func coerceType(token string) InconsistencyType {
	t := InconsistencyType(strings.ToUpper(strings.TrimSpace(token)))
	if !t.Valid() {
		return TypeContradiction
	}
	return t
}

func coerceSeverity(token string) Severity {
	s := Severity(strings.ToUpper(strings.TrimSpace(token)))
	if !s.Valid() {
		return SeverityMedium
	}
	return s
}

func coerceLocation(start, end *int, text string) Location {
	loc := Location{StartOffset: 0, EndOffset: len(text)}
	if start != nil {
		loc.StartOffset = *start
	}
	if end != nil {
		loc.EndOffset = *end
	}
	return loc
}

func excerpt(text string) string {
	if len(text) > defaultExcerptLen {
		return text[:defaultExcerptLen]
	}
	return text
}
