// Package pipeline runs a digest: fetch top posts of each board, pre-filter by upvotes,
// score with the language model, keep posts over the threshold, render and send one email.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/forumdigest/pkg/digest"
	"github.com/umputun/forumdigest/pkg/domain"
	"github.com/umputun/forumdigest/pkg/llm"
	"github.com/umputun/forumdigest/pkg/mailer"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/scorer.go -pkg mocks -skip-ensure -fmt goimports . Scorer
//go:generate moq -out mocks/renderer.go -pkg mocks -skip-ensure -fmt goimports . Renderer
//go:generate moq -out mocks/dispatcher.go -pkg mocks -skip-ensure -fmt goimports . Dispatcher

const (
	defaultThreshold  = 8
	defaultMinUpvotes = 1
)

// Fetcher lists top self-text posts of a board
type Fetcher interface {
	ListTopPosts(ctx context.Context, board, window string, limit int) ([]domain.RawPost, error)
}

// Scorer evaluates a single post
type Scorer interface {
	Evaluate(ctx context.Context, post domain.RawPost) (domain.EvaluationResult, error)
}

// Renderer builds the digest document
type Renderer interface {
	Render(posts []domain.ScoredPost, boards []string) (digest.Digest, error)
}

// Dispatcher delivers the digest
type Dispatcher interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Config holds pipeline dependencies and parameters
type Config struct {
	Fetcher    Fetcher
	Scorer     Scorer
	Renderer   Renderer
	Dispatcher Dispatcher

	Name       string // digest name for logs
	Boards     []domain.Board
	Window     string
	MinUpvotes int // posts need strictly more upvotes to be scored, less than 1 means 1
	Threshold  int // minimal AI score to keep a post
	Recipient  string
	Workers    int // boards processed concurrently, 1 or less means sequential
}

// Pipeline is a single digest run
type Pipeline struct {
	Config
}

// Result reports what happened during a run
type Result struct {
	Boards      int // boards fetched successfully
	FailedFetch int // boards skipped because of fetch errors
	Fetched     int // self-text posts returned by the fetcher
	Skipped     int // posts with too few upvotes, never scored
	Evaluated   int
	FailedEval  int // evaluations replaced by the zero-score sentinel
	Kept        int
	Sent        bool
	DispatchErr error
}

// New makes a pipeline
func New(cfg Config) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.MinUpvotes < 1 {
		cfg.MinUpvotes = defaultMinUpvotes
	}
	return &Pipeline{Config: cfg}
}

// boardResult is the output of a single board, kept separately so boards can run concurrently
type boardResult struct {
	posts []domain.ScoredPost
	stats Result
}

// Run processes all boards, then renders and sends the digest once if anything passed the filters.
// Fetch and evaluation failures are logged and skipped, a dispatch failure is logged and reported
// in Result. Returned errors are unexpected ones, like a scorer rejecting its input or a render failure.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	lgr.Printf("[INFO] digest %s: processing %d boards", p.Name, len(p.Boards))

	results := make([]boardResult, len(p.Boards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, b := range p.Boards {
		i, b := i, b
		g.Go(func() error {
			res, err := p.processBoard(gctx, b)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("digest %s interrupted: %w", p.Name, err)
	}

	// flatten in board order, fetch order inside a board is already preserved
	var res Result
	var accepted []domain.ScoredPost
	for _, br := range results {
		accepted = append(accepted, br.posts...)
		res.Boards += br.stats.Boards
		res.FailedFetch += br.stats.FailedFetch
		res.Fetched += br.stats.Fetched
		res.Skipped += br.stats.Skipped
		res.Evaluated += br.stats.Evaluated
		res.FailedEval += br.stats.FailedEval
	}
	res.Kept = len(accepted)

	if len(accepted) == 0 {
		lgr.Printf("[INFO] digest %s: no high-quality posts found, nothing to send", p.Name)
		return res, nil
	}

	boards := make([]string, len(p.Boards))
	for i, b := range p.Boards {
		boards[i] = b.Name
	}
	d, err := p.Renderer.Render(accepted, boards)
	if err != nil {
		return res, fmt.Errorf("render digest %s: %w", p.Name, err)
	}

	lgr.Printf("[INFO] digest %s: sending %d posts to %s", p.Name, len(accepted), p.Recipient)
	msg := mailer.Message{To: p.Recipient, Subject: d.Subject, HTML: d.HTML, Text: d.Text}
	if err := p.Dispatcher.Send(ctx, msg); err != nil {
		lgr.Printf("[ERROR] digest %s: failed to send: %v", p.Name, err)
		res.DispatchErr = err
		return res, nil
	}
	res.Sent = true
	lgr.Printf("[INFO] digest %s: sent", p.Name)
	return res, nil
}

// processBoard fetches a board and scores its posts
func (p *Pipeline) processBoard(ctx context.Context, b domain.Board) (boardResult, error) {
	var res boardResult

	posts, err := p.Fetcher.ListTopPosts(ctx, b.Name, p.Window, b.Limit)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch r/%s: %v", b.Name, err)
		res.stats.FailedFetch++
		return res, nil
	}
	res.stats.Boards++
	res.stats.Fetched += len(posts)
	lgr.Printf("[INFO] r/%s: %d self-text posts", b.Name, len(posts))

	for _, post := range posts {
		if post.UpvoteScore <= p.MinUpvotes {
			res.stats.Skipped++
			continue
		}

		lgr.Printf("[DEBUG] evaluating r/%s %q", b.Name, post.Title)
		eval, err := p.Scorer.Evaluate(ctx, post)
		if err != nil {
			var evalErr *llm.EvalError
			if !errors.As(err, &evalErr) {
				return res, fmt.Errorf("evaluate r/%s %q: %w", b.Name, post.Title, err)
			}
			lgr.Printf("[WARN] evaluation of %q failed: %v", post.Title, err)
			eval = domain.FailedEvaluation()
			res.stats.FailedEval++
		}
		res.stats.Evaluated++

		if eval.Score >= p.Threshold {
			res.posts = append(res.posts, domain.NewScoredPost(post, eval))
		}
	}
	return res, nil
}
