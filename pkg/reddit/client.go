package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/umputun/forumdigest/pkg/domain"
)

const (
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultSiteURL   = "https://www.reddit.com"
	defaultUserAgent = "ML_Digest_Bot/0.1"
	defaultMaxChars  = 2000
	maxPageSize      = 100 // reddit refuses larger listing pages
)

// Config holds reddit client parameters
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	APIURL       string
	TokenURL     string
	SiteURL      string // prefix for permalinks
	Timeout      time.Duration
	MaxContent   int // max self-text runes kept per post
}

// Client lists top posts of subreddits using app-only OAuth
type Client struct {
	http       *http.Client
	apiURL     string
	siteURL    string
	maxContent int
}

// NewClient creates a reddit client. The access token is requested lazily on the first call
// and refreshed by the oauth2 transport when it expires.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = defaultSiteURL
	}
	if cfg.MaxContent <= 0 {
		cfg.MaxContent = defaultMaxChars
	}

	// reddit rejects requests without a descriptive user agent, token requests included
	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: cfg.UserAgent},
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		http:       httpClient,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		maxContent: cfg.MaxContent,
	}
}

// WithMaxContent returns a copy of the client truncating self-text to n runes.
// The copy shares the underlying http client and its cached token.
func (c *Client) WithMaxContent(n int) *Client {
	res := *c
	if n > 0 {
		res.maxContent = n
	}
	return &res
}

// ListTopPosts returns self-text posts from the top listing of the board over the given time window.
// Up to limit candidates are requested, link posts are dropped, so the result may be shorter than limit.
func (c *Client) ListTopPosts(ctx context.Context, board, window string, limit int) ([]domain.RawPost, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit %d for r/%s", limit, board)
	}
	if board == "" {
		return nil, fmt.Errorf("empty board name")
	}

	var posts []domain.RawPost
	seen, after := 0, ""
	for seen < limit {
		page, err := c.fetchPage(ctx, board, window, min(limit-seen, maxPageSize), after, seen)
		if err != nil {
			return nil, fmt.Errorf("fetch r/%s: %w", board, err)
		}
		for _, child := range page.Data.Children {
			if seen >= limit {
				break
			}
			seen++
			if !child.Data.IsSelf {
				continue
			}
			posts = append(posts, c.toRawPost(board, child.Data))
		}
		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}

	lgr.Printf("[DEBUG] r/%s: %d candidates, %d self-text posts", board, seen, len(posts))
	return posts, nil
}

// fetchPage retrieves one listing page
func (c *Client) fetchPage(ctx context.Context, board, window string, size int, after string, count int) (*listing, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(size))
	params.Set("raw_json", "1")
	if window != "" {
		params.Set("t", window)
	}
	if after != "" {
		params.Set("after", after)
		params.Set("count", strconv.Itoa(count))
	}
	reqURL := fmt.Sprintf("%s/r/%s/top?%s", c.apiURL, url.PathEscape(board), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var res listing
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &res, nil
}

func (c *Client) toRawPost(board string, p postData) domain.RawPost {
	return domain.RawPost{
		Board:       board,
		ID:          p.ID,
		Title:       p.Title,
		Content:     truncate(p.SelfText, c.maxContent),
		URL:         c.siteURL + p.Permalink,
		UpvoteScore: p.Score,
	}
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
