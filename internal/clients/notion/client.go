package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/vkrlab/briefbot/internal/pkg/ctxutil"
	"github.com/vkrlab/briefbot/internal/pkg/httpx"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/utils"
)

type Client interface {
	FetchTopLevelBlocks(ctx context.Context, pageID string) ([]Block, error)
	FetchPageTitle(ctx context.Context, pageID string) (string, error)
	PublicURL(pageID string) string
}

type Config struct {
	Token      string
	BaseURL    string
	Version    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("NOTION_TIMEOUT_SECONDS", 30, log)
	maxRetries := utils.GetEnvAsInt("NOTION_MAX_RETRIES", 3, log)
	return Config{
		Token:      strings.TrimSpace(os.Getenv("NOTION_TOKEN")),
		BaseURL:    strings.TrimSpace(os.Getenv("NOTION_BASE_URL")),
		Version:    strings.TrimSpace(os.Getenv("NOTION_VERSION")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("missing NOTION_TOKEN")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.notion.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "2022-06-28"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "NotionClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

var hexIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// NormalizeID rewrites a bare 32-hex page id into its dashed UUID form.
// Anything else is returned unchanged.
func NormalizeID(pageID string) string {
	s := strings.TrimSpace(strings.ReplaceAll(pageID, "-", ""))
	if !hexIDPattern.MatchString(s) {
		return strings.TrimSpace(pageID)
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", s[0:8], s[8:12], s[12:16], s[16:20], s[20:32])
}

// PublicURL is the browser link for a page.
func (c *client) PublicURL(pageID string) string {
	pid := strings.ReplaceAll(strings.TrimSpace(pageID), "-", "")
	if pid == "" {
		return ""
	}
	return "https://www.notion.so/" + pid
}

type blockListResponse struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// FetchTopLevelBlocks returns all first-level blocks of the page, following
// pagination until exhausted.
func (c *client) FetchTopLevelBlocks(ctx context.Context, pageID string) ([]Block, error) {
	pid := NormalizeID(pageID)
	if pid == "" {
		return nil, fmt.Errorf("notion: page id required")
	}
	endpoint := fmt.Sprintf("%s/blocks/%s/children", c.cfg.BaseURL, url.PathEscape(pid))

	var out []Block
	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", "100")
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		page, err := doGet[blockListResponse](c, ctx, endpoint+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return out, nil
}

type pageResponse struct {
	Properties map[string]struct {
		Type  string     `json:"type"`
		Title []RichText `json:"title"`
	} `json:"properties"`
}

// FetchPageTitle resolves the page's title property.
func (c *client) FetchPageTitle(ctx context.Context, pageID string) (string, error) {
	pid := NormalizeID(pageID)
	if pid == "" {
		return "", fmt.Errorf("notion: page id required")
	}
	endpoint := fmt.Sprintf("%s/pages/%s", c.cfg.BaseURL, url.PathEscape(pid))
	page, err := doGet[pageResponse](c, ctx, endpoint)
	if err != nil {
		return "", err
	}
	for _, prop := range page.Properties {
		if prop.Type != "title" {
			continue
		}
		var sb strings.Builder
		for _, r := range prop.Title {
			sb.WriteString(r.PlainText)
		}
		return strings.TrimSpace(sb.String()), nil
	}
	return "", nil
}

// ---------- HTTP / retry helpers ----------

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "notion: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		return fmt.Sprintf("notion http %d: %s (code=%s)", e.StatusCode, e.APIError.Message, e.APIError.Code)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("notion http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doGet[T any](c *client, ctx context.Context, urlStr string) (*T, error) {
	backoff := 1 * time.Second

	for attempt := 0; ; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, resp, err := doGetOnce[T](c, ctx, urlStr)
		if err == nil {
			return out, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Notion request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func doGetOnce[T any](c *client, ctx context.Context, urlStr string) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("notion decode error: %w", err)
	}
	return &out, resp, nil
}
