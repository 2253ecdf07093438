package domain

// EvaluationFailedSummary is the summary carried by the sentinel result substituted for failed evaluations
const EvaluationFailedSummary = "evaluation failed"

// Board is a named forum polled for posts
type Board struct {
	Name  string
	Limit int
}

// RawPost represents a self-text post fetched from a board
type RawPost struct {
	Board       string
	ID          string
	Title       string
	Content     string // truncated self-text
	URL         string
	UpvoteScore int
}

// EvaluationResult is the relevance verdict returned by the scorer for a single post
type EvaluationResult struct {
	AnalysisBrief string
	Score         int
	Summary       string
}

// FailedEvaluation returns the zero-score sentinel used when a post could not be evaluated.
// It never passes any positive threshold, so the post is simply dropped from the digest.
func FailedEvaluation() EvaluationResult {
	return EvaluationResult{Score: 0, Summary: EvaluationFailedSummary}
}

// ScoredPost is a post that cleared the score threshold, annotated with the model's verdict
type ScoredPost struct {
	RawPost
	AIScore int
	Summary string
}

// NewScoredPost merges a post with its evaluation result
func NewScoredPost(p RawPost, res EvaluationResult) ScoredPost {
	return ScoredPost{RawPost: p, AIScore: res.Score, Summary: res.Summary}
}
