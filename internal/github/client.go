// Package github fetches prebuilt CodeQL databases from GitHub code scanning.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
	"github.com/data-douser/ghastoolkit-go/internal/repository"
)

const (
	defaultRequestsPerSecond = 10
	defaultBurst             = 5
)

// Config configures a Client.
type Config struct {
	// Token is a personal access token or GITHUB_TOKEN. Anonymous when empty.
	Token string

	// Instance is the GitHub Enterprise Server URL, e.g.
	// https://github.example.com. Empty means github.com.
	Instance string

	// RequestsPerSecond limits API calls (default: 10).
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 5).
	Burst int

	// HTTPClient is used instead of building one from Token.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client lists and downloads CodeQL databases GitHub built for a repository.
type Client struct {
	client  *github.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil && cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if cfg.Instance != "" && !isDotCom(cfg.Instance) {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.Instance, cfg.Instance)
		if err != nil {
			return nil, fmt.Errorf("github: invalid instance %q: %w", cfg.Instance, err)
		}
	}

	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = defaultBurst
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}, nil
}

func isDotCom(instance string) bool {
	u, err := url.Parse(instance)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "api.github.com"
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.client.BaseURL.String()
}

// ListDatabases lists the CodeQL databases available for repo.
func (c *Client) ListDatabases(ctx context.Context, repo repository.Repository) ([]codeql.RemoteDatabase, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	dbs, _, err := c.client.CodeScanning.ListCodeQLDatabases(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list CodeQL databases for %s: %w", repo.FullName(), err)
	}

	remotes := make([]codeql.RemoteDatabase, 0, len(dbs))
	for _, db := range dbs {
		lang := db.GetLanguage()
		route := db.GetURL()
		if route == "" {
			route = databasePath(repo, lang)
		}
		remotes = append(remotes, codeql.RemoteDatabase{
			Language: lang,
			Route:    route,
			Size:     db.GetSize(),
		})
	}
	c.logger.Debug("listed CodeQL databases", "repository", repo.FullName(), "count", len(remotes))
	return remotes, nil
}

// FetchDatabase streams the zip archive of the database for language.
// The caller must close the returned reader.
func (c *Client) FetchDatabase(ctx context.Context, repo repository.Repository, language string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.client.NewRequest(http.MethodGet, databasePath(repo, language), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/zip")

	resp, err := c.client.BareDo(ctx, req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close() //nolint:errcheck // Best effort close
		}
		return nil, fmt.Errorf("failed to download %s database for %s: %w", language, repo.FullName(), err)
	}
	return resp.Body, nil
}

func databasePath(repo repository.Repository, language string) string {
	return fmt.Sprintf("repos/%s/%s/code-scanning/codeql/databases/%s",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(language))
}
