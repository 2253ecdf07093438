package digest

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/umputun/forumdigest/pkg/domain"
)

// ErrNoPosts is returned when rendering is requested for an empty post list
var ErrNoPosts = errors.New("no posts to include in digest")

// Digest represents a rendered digest ready for sending
type Digest struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer builds digest documents from scored posts
type Renderer struct {
	title    string
	subject  string
	now      func() time.Time
	template *template.Template
}

// Option customizes the renderer
type Option func(r *Renderer)

// WithClock sets the time source used for the digest date
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a digest renderer. Title is the heading prefix, subject is the email subject line.
func New(title, subject string, opts ...Option) *Renderer {
	res := &Renderer{
		title:    title,
		subject:  subject,
		now:      time.Now,
		template: template.Must(template.New("digest").Parse(htmlTemplate)),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

type templateData struct {
	Title  string
	Date   string
	Boards string
	Posts  []postData
}

type postData struct {
	Board       string
	Title       string
	URL         string
	AIScore     int
	UpvoteScore int
	Summary     string
}

// Render produces the digest for posts in the order given. It has no side effects, the same
// posts and clock reading always produce the same document.
func (r *Renderer) Render(posts []domain.ScoredPost, boards []string) (Digest, error) {
	if len(posts) == 0 {
		return Digest{}, ErrNoPosts
	}

	data := templateData{
		Title:  r.title,
		Date:   r.now().Format("2006-01-02"),
		Boards: formatBoards(boards),
		Posts:  make([]postData, len(posts)),
	}
	for i, p := range posts {
		data.Posts[i] = postData{
			Board:       p.Board,
			Title:       p.Title,
			URL:         p.URL,
			AIScore:     p.AIScore,
			UpvoteScore: p.UpvoteScore,
			Summary:     p.Summary,
		}
	}

	var buf bytes.Buffer
	if err := r.template.Execute(&buf, data); err != nil {
		return Digest{}, fmt.Errorf("failed to render template: %w", err)
	}

	return Digest{
		Subject: r.subject,
		HTML:    buf.String(),
		Text:    buildPlainText(data),
	}, nil
}

func formatBoards(boards []string) string {
	res := make([]string, len(boards))
	for i, b := range boards {
		res[i] = "r/" + b
	}
	return strings.Join(res, ", ")
}

func buildPlainText(data templateData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s (%s)\n%s\n\n", data.Title, data.Date, data.Boards))
	for i, p := range data.Posts {
		buf.WriteString(fmt.Sprintf("%d. [r/%s] %s (AI score: %d, upvotes: %d)\n", i+1, p.Board, p.Title, p.AIScore, p.UpvoteScore))
		buf.WriteString(fmt.Sprintf("   %s\n", p.Summary))
		buf.WriteString(fmt.Sprintf("   %s\n\n", p.URL))
	}
	return buf.String()
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}} ({{.Date}})</title>
</head>
<body style="font-family: sans-serif; max-width: 720px; margin: 0 auto;">
    <h2>{{.Title}} ({{.Date}})</h2>
    <p style="color: #666;">{{.Boards}}</p>
{{range .Posts}}
    <div style="margin-bottom: 20px; border-left: 4px solid #3498db; padding-left: 10px;">
        <h3><span style="color: #999; font-size: 12px;">[r/{{.Board}}]</span> <a href="{{.URL}}">{{.Title}}</a> (AI score: {{.AIScore}})</h3>
        <p style="color: #333;"><strong>Summary:</strong> {{.Summary}}</p>
        <p style="color: #666;"><small>Upvotes: {{.UpvoteScore}}</small></p>
    </div>
    <hr style="border: 0; border-top: 1px solid #eee;" />
{{end}}
</body>
</html>`
