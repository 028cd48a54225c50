// Package service hosts the long-running surfaces: the MCP broker the host
// runtime connects to, and the DingTalk callback server that turns group
// chat messages into memory-backed turns.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/theapemachine/mnemo/pkg/dingtalk"
	errs "github.com/theapemachine/mnemo/pkg/errors"
	"github.com/theapemachine/mnemo/pkg/hooks"
	"github.com/theapemachine/mnemo/pkg/ledger"
)

// replyRecallLimit caps how many memories a recall-only reply lists.
const replyRecallLimit = 5

// TextPayload carries the text body in both callback and reply frames.
type TextPayload struct {
	Content string `json:"content"`
}

// InboundMessage is the subset of the robot callback payload the service
// acts on.
type InboundMessage struct {
	MsgType        string      `json:"msgtype"`
	Text           TextPayload `json:"text"`
	SenderNick     string      `json:"senderNick"`
	SenderStaffID  string      `json:"senderStaffId"`
	ConversationID string      `json:"conversationId"`
	SessionWebhook string      `json:"sessionWebhook"`
}

type inlineReply struct {
	MsgType string      `json:"msgtype"`
	Text    TextPayload `json:"text"`
}

type callbackAck struct {
	Status string `json:"status"`
}

type relayRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
}

type relayResponse struct {
	Reply string `json:"reply"`
}

/*
DingTalkService receives group robot callbacks, runs each message through
the memory hooks, and replies over the per-conversation session webhook.
When no downstream agent endpoint is configured it answers from recall
alone, which makes a bare deployment a usable memory assistant.
*/
type DingTalkService struct {
	app    *fiber.App
	config dingtalk.Config
	client *dingtalk.Client
	hooks  *hooks.Manager
	store  *ledger.Store
	relay  *resty.Client
}

func NewDingTalkService(store *ledger.Store, config dingtalk.Config, opts hooks.Options) (*DingTalkService, error) {
	if store == nil {
		return nil, errs.NewError("dingtalk service", errs.ErrMissingStore{})
	}
	if config.AppSecret == "" {
		return nil, errs.NewError("dingtalk service", errs.ErrMissingSecret{})
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.TimeoutSeconds
	if timeout <= 0 {
		timeout = dingtalk.DefaultTimeoutSeconds
	}

	return &DingTalkService{
		app: fiber.New(fiber.Config{
			AppName:           "mnemo-dingtalk",
			ServerHeader:      "mnemo",
			StreamRequestBody: true,
		}),
		config: config,
		client: dingtalk.NewSessionClient(config),
		hooks:  hooks.NewManager(store, opts),
		store:  store,
		relay:  resty.New().SetTimeout(time.Duration(timeout) * time.Second),
	}, nil
}

func (srv *DingTalkService) Start() error {
	srv.app.Use(logger.New(logger.Config{
		// Skip logging for the probe endpoints to reduce noise
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/livez" || c.Path() == "/readyz"
		},
	}), healthcheck.New())

	srv.app.Get("/", srv.handleRoot)
	srv.app.Post("/callback", srv.handleCallback)

	return srv.app.Listen(srv.config.Bind, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *DingTalkService) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *DingTalkService) handleCallback(ctx fiber.Ctx) error {
	err := dingtalk.VerifyInbound(
		srv.config.AppSecret,
		ctx.Get(dingtalk.TimestampHeader),
		ctx.Get(dingtalk.SignHeader),
	)

	if err != nil {
		log.Warn("rejected dingtalk callback", "ip", ctx.IP(), "error", err)
		return ctx.Status(fiber.StatusUnauthorized).SendString(err.Error())
	}

	var msg InboundMessage

	if err := json.Unmarshal(ctx.Body(), &msg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	prompt := StripMention(msg.Text.Content)

	if msg.MsgType != "text" || prompt == "" {
		return srv.ack(ctx, "ignored")
	}

	reply, err := srv.Answer(context.Background(), prompt)

	if err != nil {
		log.Error("answering dingtalk message failed", "error", err)
		reply = "Something went wrong while consulting memory."
	}

	if msg.SessionWebhook != "" {
		if sendErr := srv.client.SendTextTo(context.Background(), msg.SessionWebhook, reply); sendErr != nil {
			log.Error("session webhook reply failed", "error", sendErr)
		}
		// DingTalk redelivers on non-2xx and the turn is already recorded,
		// so answer 200 even when delivery failed.
		return srv.ack(ctx, "delivered")
	}

	payload, marshalErr := json.Marshal(inlineReply{MsgType: "text", Text: TextPayload{Content: reply}})

	if marshalErr != nil {
		return ctx.Status(fiber.StatusInternalServerError).SendString(marshalErr.Error())
	}

	return ctx.Status(fiber.StatusOK).Send(payload)
}

func (srv *DingTalkService) ack(ctx fiber.Ctx, status string) error {
	payload, err := json.Marshal(callbackAck{Status: status})

	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return ctx.Status(fiber.StatusOK).Send(payload)
}

/*
Answer runs one inbound prompt through the full hook cycle: recalled context
is gathered, the prompt is answered by the downstream agent when one is
configured (from recall directly when not), and the outcome is task-logged
and screened for capture. A reply is returned even when a downstream step
failed; the error reports what went wrong.
*/
func (srv *DingTalkService) Answer(ctx context.Context, prompt string) (string, error) {
	preamble, _ := srv.hooks.PreRun(prompt)

	var (
		reply string
		err   error
	)

	if srv.config.AgentEndpoint != "" {
		reply, err = srv.relayPrompt(ctx, prompt, preamble)
	} else {
		reply = srv.recallAnswer(prompt)
	}

	report := srv.hooks.PostRun(err == nil, []hooks.Turn{
		{Role: hooks.RoleUser, Text: prompt},
		{Role: hooks.RoleAssistant, Text: reply},
	})

	log.Info("dingtalk turn processed",
		"task_logged", report.TaskLogged,
		"stored", len(report.Stored),
		"skipped_duplicates", report.SkippedDuplicates,
		"errors", len(report.Errs),
	)

	return reply, err
}

// relayPrompt forwards the prompt, with any recalled context alongside, to
// the configured agent endpoint and returns its reply.
func (srv *DingTalkService) relayPrompt(ctx context.Context, prompt, preamble string) (string, error) {
	var out relayResponse

	resp, err := srv.relay.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(relayRequest{Prompt: prompt, Context: preamble}).
		SetResult(&out).
		Post(srv.config.AgentEndpoint)

	if err != nil {
		return "", errs.NewError("agent relay", err)
	}

	if !resp.IsSuccess() {
		return "", (&errs.APIError{Code: resp.StatusCode()}).
			WithMessagef("unexpected status from agent endpoint: %s", resp.Status())
	}

	if strings.TrimSpace(out.Reply) == "" {
		return "", errs.NewError("agent relay returned an empty reply")
	}

	return out.Reply, nil
}

// recallAnswer serves the prompt from the store alone, for deployments
// without a downstream agent.
func (srv *DingTalkService) recallAnswer(prompt string) string {
	entries, err := srv.store.Search(prompt, replyRecallLimit)

	if err != nil {
		log.Warn("recall search failed", "error", err)
		return "Memory is unavailable right now."
	}

	if len(entries) == 0 {
		return "Nothing in memory matches that yet."
	}

	var b strings.Builder
	b.WriteString("Here is what I remember:")

	for i, entry := range entries {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, entry.Category, entry.Text)
	}

	return b.String()
}

/*
StripMention removes the leading @-mention DingTalk prepends to group
messages directed at the robot. The mention ends at the first whitespace
rune, which DingTalk renders as a non-breaking space.
*/
func StripMention(content string) string {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, "@") {
		return content
	}

	cut := strings.IndexFunc(content, unicode.IsSpace)

	if cut < 0 {
		return ""
	}

	return strings.TrimSpace(content[cut:])
}
