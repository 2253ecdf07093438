package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/forumdigest/pkg/domain"
)

// response format modes
const (
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

const (
	defaultModel    = "deepseek-chat"
	defaultLanguage = "Chinese"
	maxScore        = 10
)

// ErrEmptyPost is returned for posts without title and content, this is a caller bug rather than an external failure
var ErrEmptyPost = errors.New("post has neither title nor content")

// Config holds scorer parameters
type Config struct {
	APIKey         string
	BaseURL        string // OpenAI-compatible endpoint, empty for api.openai.com
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	ResponseFormat string // json_object or json_schema
	SystemPrompt   string
	Language       string // language of the generated summary
}

// Scorer rates a single post's research value with a chat completion model
type Scorer struct {
	client    *openai.Client
	config    Config
	systemMsg string
	prompt    *template.Template
	schema    *jsonschema.Schema
	sanitizer *bluemonday.Policy
}

// default system prompt, makes json-only output more stable on deepseek-like models
const defaultSystemPrompt = `You are a JSON assistant. Reply with a single JSON object in exactly the requested format, with no extra text.`

const promptTemplate = `### Role
You are a Senior Machine Learning Researcher at a top-tier institution. Your task is to critically evaluate posts from r/{{.Board}} to identify high-value research, significant technical breakthroughs, or profound engineering insights.

### Input Data
- **Title**: {{.Title}}
- **Content**: {{.Content}}

### Evaluation Criteria
1. **Originality**: Does it present new ideas, libraries, or papers?
2. **Technical Depth**: Is the content rigorous or just surface-level?
3. **Practical Value**: Can this be applied to real-world ML problems or research?
4. **Signal-to-Noise**: Is it a high-quality discussion or a repetitive/low-effort post?

### Instructions
- First, analyze the content internally.
- Then, output a strictly formatted JSON object.
- The "summary" field MUST be in **{{.Language}}** to ensure the final report is easy to read.
- The "score" should be an integer from 1 to 10 (8+ means must-read).

### Output Format
{
    "analysis_brief": "A one-sentence internal reasoning in English",
    "score": 10,
    "summary": "A core summary in {{.Language}}, at most 100 words"
}`

// evalResponse is the wire shape of the model's answer; pointers detect missing fields
type evalResponse struct {
	AnalysisBrief string  `json:"analysis_brief" jsonschema:"description=one-sentence internal reasoning"`
	Score         *int    `json:"score" jsonschema:"minimum=1,maximum=10,description=research value score"`
	Summary       *string `json:"summary" jsonschema:"description=short summary in the requested language"`
}

// NewScorer creates a new LLM scorer
func NewScorer(cfg Config) *Scorer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = FormatJSONObject
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}

	return &Scorer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
		prompt:    template.Must(template.New("prompt").Parse(promptTemplate)),
		schema:    reflector.Reflect(&evalResponse{}),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// WithLanguage returns a copy of the scorer writing summaries in the given language.
// The copy shares the api client.
func (s *Scorer) WithLanguage(lang string) *Scorer {
	res := *s
	if lang != "" {
		res.config.Language = lang
	}
	return &res
}

// Evaluate scores a single post. External failures (request, empty answer, undecodable answer)
// are reported as *EvalError, so callers can substitute domain.FailedEvaluation and move on.
func (s *Scorer) Evaluate(ctx context.Context, post domain.RawPost) (domain.EvaluationResult, error) {
	if strings.TrimSpace(post.Title) == "" && strings.TrimSpace(post.Content) == "" {
		return domain.EvaluationResult{}, ErrEmptyPost
	}

	prompt, err := s.buildPrompt(post)
	if err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("build prompt: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: float32(s.config.Temperature),
		MaxTokens:   s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: s.responseFormat(),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.EvaluationResult{}, &EvalError{Kind: KindRequest, Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return domain.EvaluationResult{}, &EvalError{Kind: KindEmptyResponse, Err: errors.New("no response from llm")}
	}

	res, err := s.parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.EvaluationResult{}, &EvalError{Kind: KindDecode, Err: err}
	}
	lgr.Printf("[DEBUG] evaluated %q: score %d, %s", post.Title, res.Score, res.AnalysisBrief)
	return res, nil
}

// buildPrompt renders the user prompt for a post
func (s *Scorer) buildPrompt(post domain.RawPost) (string, error) {
	var sb strings.Builder
	err := s.prompt.Execute(&sb, struct {
		Board, Title, Content, Language string
	}{
		Board:    post.Board,
		Title:    post.Title,
		Content:  post.Content,
		Language: s.config.Language,
	})
	return sb.String(), err
}

func (s *Scorer) responseFormat() *openai.ChatCompletionResponseFormat {
	if s.config.ResponseFormat == FormatJSONSchema {
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "post_evaluation",
				Schema: s.schema,
			},
		}
	}
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}

// parseResponse decodes and validates the model answer
func (s *Scorer) parseResponse(content string) (domain.EvaluationResult, error) {
	// some compatible endpoints wrap the object in prose or code fences
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || start >= end {
		return domain.EvaluationResult{}, errors.New("no json object found in response")
	}

	var resp evalResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("failed to parse json response: %w", err)
	}
	if resp.Score == nil {
		return domain.EvaluationResult{}, errors.New("missing score field")
	}
	if resp.Summary == nil {
		return domain.EvaluationResult{}, errors.New("missing summary field")
	}

	summary := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(*resp.Summary)))
	if summary == "" {
		return domain.EvaluationResult{}, errors.New("empty summary field")
	}

	// ensure score is in valid range
	score := *resp.Score
	if score < 0 {
		score = 0
	} else if score > maxScore {
		score = maxScore
	}

	return domain.EvaluationResult{
		AnalysisBrief: strings.TrimSpace(resp.AnalysisBrief),
		Score:         score,
		Summary:       summary,
	}, nil
}
