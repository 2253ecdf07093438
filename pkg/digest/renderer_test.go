package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/forumdigest/pkg/domain"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
}

func scored(board, title string, ai, upvotes int, summary string) domain.ScoredPost {
	return domain.ScoredPost{
		RawPost: domain.RawPost{
			Board:       board,
			Title:       title,
			URL:         "https://www.reddit.com/r/" + board + "/comments/" + strings.ToLower(title),
			UpvoteScore: upvotes,
		},
		AIScore: ai,
		Summary: summary,
	}
}

func TestRenderer_Render(t *testing.T) {
	r := New("High-quality picks", "ML daily", WithClock(fixedClock))
	posts := []domain.ScoredPost{
		scored("MachineLearning", "first", 9, 120, "summary one"),
		scored("LocalLLaMA", "second", 8, 45, "summary two"),
	}

	d, err := r.Render(posts, []string{"MachineLearning", "LocalLLaMA"})
	require.NoError(t, err)

	assert.Equal(t, "ML daily", d.Subject)
	assert.Contains(t, d.HTML, "<h2>High-quality picks (2026-10-17)</h2>")
	assert.Contains(t, d.HTML, "r/MachineLearning, r/LocalLLaMA")
	assert.Contains(t, d.HTML, `<a href="https://www.reddit.com/r/MachineLearning/comments/first">first</a> (AI score: 9)`)
	assert.Contains(t, d.HTML, "[r/LocalLLaMA]")
	assert.Contains(t, d.HTML, "Upvotes: 120")
	assert.Contains(t, d.HTML, "Upvotes: 45")
	assert.Contains(t, d.HTML, "summary one")
	assert.Equal(t, 1, strings.Count(d.HTML, ">first</a>"))

	// posts keep the input order
	assert.Less(t, strings.Index(d.HTML, "summary one"), strings.Index(d.HTML, "summary two"))

	assert.Contains(t, d.Text, "High-quality picks (2026-10-17)")
	assert.Contains(t, d.Text, "1. [r/MachineLearning] first (AI score: 9, upvotes: 120)")
	assert.Contains(t, d.Text, "2. [r/LocalLLaMA] second (AI score: 8, upvotes: 45)")
}

func TestRenderer_RenderIdempotent(t *testing.T) {
	r := New("picks", "subj", WithClock(fixedClock))
	posts := []domain.ScoredPost{scored("MachineLearning", "first", 9, 120, "summary one")}

	d1, err := r.Render(posts, []string{"MachineLearning"})
	require.NoError(t, err)
	d2, err := r.Render(posts, []string{"MachineLearning"})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestRenderer_RenderEscapes(t *testing.T) {
	r := New("picks", "subj", WithClock(fixedClock))
	posts := []domain.ScoredPost{
		scored("MachineLearning", "<script>x</script>", 9, 10, `a "quoted" <b>summary</b>`),
	}
	posts[0].URL = `javascript:alert(1)`

	d, err := r.Render(posts, []string{"MachineLearning"})
	require.NoError(t, err)
	assert.NotContains(t, d.HTML, "<script>x</script>")
	assert.Contains(t, d.HTML, "&lt;script&gt;")
	assert.NotContains(t, d.HTML, "<b>summary</b>")
	assert.NotContains(t, d.HTML, `href="javascript:`)
}

func TestRenderer_RenderEmpty(t *testing.T) {
	r := New("picks", "subj")
	_, err := r.Render(nil, []string{"MachineLearning"})
	require.ErrorIs(t, err, ErrNoPosts)
}

func TestFormatBoards(t *testing.T) {
	assert.Equal(t, "", formatBoards(nil))
	assert.Equal(t, "r/a", formatBoards([]string{"a"}))
	assert.Equal(t, "r/a, r/b", formatBoards([]string{"a", "b"}))
}
