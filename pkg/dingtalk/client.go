package dingtalk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	errs "github.com/theapemachine/mnemo/pkg/errors"
)

// Message payloads as the robot API expects them.
type textMessage struct {
	MsgType string      `json:"msgtype"`
	Text    textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type markdownMessage struct {
	MsgType  string          `json:"msgtype"`
	Markdown markdownContent `json:"markdown"`
}

type markdownContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// apiResult is DingTalk's response envelope. The API answers 200 OK even for
// rejections; errcode is the real verdict.
type apiResult struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

/*
Client sends messages to DingTalk. Sends to the fixed webhook are signed with
the outbound secret; sends to a per-conversation session webhook (handed to us
inside an inbound callback) are pre-authorized and go out unsigned.
*/
type Client struct {
	config Config
	http   *resty.Client
	retry  *errs.RetryConfig
}

func NewClient(config Config) (*Client, error) {
	if config.OutboundWebhook == "" {
		return nil, errs.NewError("dingtalk client", errs.ErrMissingWebhook{})
	}
	if config.OutboundSecret == "" {
		return nil, errs.NewError("dingtalk client", errs.ErrMissingSecret{})
	}
	return NewSessionClient(config), nil
}

// NewSessionClient builds a client for session webhook replies only. Session
// webhooks arrive pre-authorized inside callbacks, so the fixed-webhook half
// of the config may be absent.
func NewSessionClient(config Config) *Client {
	timeout := config.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}

	return &Client{
		config: config,
		http:   resty.New().SetTimeout(time.Duration(timeout) * time.Second),
		// One backoff retry, then abandon the attempt
		retry: &errs.RetryConfig{
			MaxAttempts:   2,
			InitialDelay:  250 * time.Millisecond,
			MaxDelay:      time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// SendText posts a plain text message to the configured webhook.
func (client *Client) SendText(ctx context.Context, text string) error {
	return client.post(ctx, client.signedURL(), textMessage{MsgType: "text", Text: textContent{Content: text}})
}

// SendMarkdown posts a markdown card to the configured webhook.
func (client *Client) SendMarkdown(ctx context.Context, title, text string) error {
	return client.post(ctx, client.signedURL(), markdownMessage{
		MsgType:  "markdown",
		Markdown: markdownContent{Title: title, Text: text},
	})
}

// SendTextTo posts a plain text message to a session webhook from an inbound
// callback.
func (client *Client) SendTextTo(ctx context.Context, sessionWebhook, text string) error {
	if sessionWebhook == "" {
		return errs.NewError("dingtalk reply", errs.ErrMissingWebhook{})
	}
	return client.post(ctx, sessionWebhook, textMessage{MsgType: "text", Text: textContent{Content: text}})
}

// signedURL appends the timestamp and signature DingTalk expects on the
// fixed webhook's query string.
func (client *Client) signedURL() string {
	timestampMS := time.Now().UnixMilli()
	sep := "?"
	if strings.Contains(client.config.OutboundWebhook, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s",
		client.config.OutboundWebhook, sep, timestampMS, Sign(client.config.OutboundSecret, timestampMS))
}

func (client *Client) post(ctx context.Context, url string, payload any) error {
	var result apiResult

	err := errs.RetryWithBackoff(client.retry, func() error {
		resp, err := client.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			SetResult(&result).
			Post(url)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return (&errs.APIError{Code: resp.StatusCode()}).
				WithMessagef("unexpected status from dingtalk: %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return errs.NewError("dingtalk send", err)
	}

	// Transport succeeded; the envelope still carries the verdict. API-level
	// rejections are not retried, a mismatched keyword or sign will not heal.
	if result.ErrCode != 0 {
		return &errs.APIError{Code: result.ErrCode, Message: result.ErrMsg}
	}
	return nil
}
