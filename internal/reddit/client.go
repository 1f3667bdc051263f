// Package reddit is a minimal Reddit API client covering what the bridge
// needs: listing new submissions, loading a single submission with its
// comments, and verifying a subreddit exists. Script-app OAuth, one token,
// refreshed on demand.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

const (
	defaultAuthURL = "https://www.reddit.com"
	defaultAPIURL  = "https://oauth.reddit.com"

	requestTimeout = 30 * time.Second
	limiterBurst   = 2

	// tokenSlack refreshes the OAuth token slightly before it expires.
	tokenSlack = time.Minute
)

// Credentials for a Reddit script application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Client talks to the Reddit API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      Credentials
	logger     *zerolog.Logger

	authURL string
	apiURL  string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(creds Credentials, rps float64, logger *zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), limiterBurst),
		creds:      creds,
		logger:     logger,
		authURL:    defaultAuthURL,
		apiURL:     defaultAPIURL,
	}
}

// NewSubmissions lists submissions newer than the before cursor (a post
// fullname, empty for the newest page) across the given subreddits, newest
// first.
func (c *Client) NewSubmissions(ctx context.Context, subreddits []string, before string, limit int) ([]*domain.Submission, error) {
	if len(subreddits) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	if before != "" {
		query.Set("before", before)
	}

	path := "/r/" + strings.Join(subreddits, "+") + "/new.json"

	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return decodeListing(body)
}

// Submission loads one submission by its bare ID.
func (c *Client) Submission(ctx context.Context, id string) (*domain.Submission, error) {
	query := url.Values{}
	query.Set("id", "t3_"+id)
	query.Set("raw_json", "1")

	body, err := c.get(ctx, "/api/info.json", query)
	if err != nil {
		return nil, err
	}

	subs, err := decodeListing(body)
	if err != nil {
		return nil, err
	}

	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSubmissionNotFound, id)
	}

	return subs[0], nil
}

// Comments loads a submission's comment list. The comments endpoint returns
// a two-element array of listings; the second holds the comment tree, of
// which only top-level t1 entries are taken.
func (c *Client) Comments(ctx context.Context, id string) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("limit", "100")
	query.Set("raw_json", "1")

	body, err := c.get(ctx, "/comments/"+id+".json", query)
	if err != nil {
		return nil, err
	}

	var comments []domain.Comment

	gjson.GetBytes(body, "1.data.children").ForEach(func(_, child gjson.Result) bool {
		if child.Get("kind").String() != "t1" {
			return true
		}

		data := child.Get("data")

		author := data.Get("author").String()
		if author == deletedAuthorMarker {
			author = ""
		}

		comments = append(comments, domain.Comment{
			ID:        data.Get("id").String(),
			Author:    author,
			Body:      data.Get("body").String(),
			Score:     int(data.Get("score").Int()),
			CreatedAt: time.Unix(data.Get("created_utc").Int(), 0).UTC(),
		})

		return true
	})

	return comments, nil
}

// SubredditExists checks that a subreddit is reachable before it is added to
// the watchlist.
func (c *Client) SubredditExists(ctx context.Context, name string) error {
	_, err := c.get(ctx, "/r/"+url.PathEscape(name)+"/about.json", nil)

	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := c.apiURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSubmissionNotFound, path)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %d", coreerrors.ErrUnexpectedStatus, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", coreerrors.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", coreerrors.ErrAuthFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", coreerrors.ErrAuthFailed, err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty token", coreerrors.ErrAuthFailed)
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	c.logger.Debug().Time("expires", c.tokenExpiry).Msg("reddit token refreshed")

	return c.token, nil
}
