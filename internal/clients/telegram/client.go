package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vkrlab/briefbot/internal/pkg/ctxutil"
	"github.com/vkrlab/briefbot/internal/pkg/httpx"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/utils"
)

type Client interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	DeleteWebhook(ctx context.Context) error
}

type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("TELEGRAM_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("TELEGRAM_MAX_RETRIES", 3, log)
	return Config{
		Token:      strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		BaseURL:    strings.TrimSpace(os.Getenv("TELEGRAM_BASE_URL")),
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
		return nil, fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "TelegramClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func (c *client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	if timeoutSec < 0 {
		timeoutSec = 0
	}
	payload := map[string]interface{}{
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if offset != 0 {
		payload["offset"] = offset
	}
	out, err := doCall[[]Update](c, ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("telegram: text required")
	}
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return doCall[Message](c, ctx, "sendMessage", payload)
}

func (c *client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	_, err := doCall[json.RawMessage](c, ctx, "editMessageText", payload)
	return err
}

func (c *client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if strings.TrimSpace(text) != "" {
		payload["text"] = text
	}
	_, err := doCall[bool](c, ctx, "answerCallbackQuery", payload)
	return err
}

func (c *client) DeleteWebhook(ctx context.Context) error {
	_, err := doCall[bool](c, ctx, "deleteWebhook", map[string]interface{}{})
	return err
}

// ---------- HTTP / retry helpers ----------

type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e == nil {
		return "telegram: <nil error>"
	}
	return fmt.Sprintf("telegram api %d: %s", e.Code, e.Description)
}

// Telegram error codes mirror HTTP status codes, which lets the shared retry
// classifier apply.
func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.Code
}

// IsNotModified reports the "message is not modified" edit error, which the
// dispatcher treats as success on redundant re-renders.
func IsNotModified(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) && ae != nil {
		return strings.Contains(strings.ToLower(ae.Description), "not modified")
	}
	return false
}

type envelope[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

func doCall[T any](c *client, ctx context.Context, method string, payload map[string]interface{}) (*T, error) {
	backoff := 1 * time.Second

	for attempt := 0; ; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, retryAfter, err := doCallOnce[T](c, ctx, method, payload)
		if err == nil {
			return out, nil
		}

		if IsNotModified(err) || !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := backoff
		if retryAfter > 0 {
			sleepFor = time.Duration(retryAfter) * time.Second
		}
		if sleepFor > 15*time.Second {
			sleepFor = 15 * time.Second
		}
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Telegram request retrying",
			"method", method,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func doCallOnce[T any](c *client, ctx context.Context, method string, payload map[string]interface{}) (*T, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, 0, readErr
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("telegram decode error (%s): %w", method, err)
	}
	if !env.OK {
		retryAfter := 0
		if env.Parameters != nil {
			retryAfter = env.Parameters.RetryAfter
		}
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, retryAfter, &APIError{Code: code, Description: env.Description}
	}
	return &env.Result, 0, nil
}
