// Package dingtalk adapts the memory plugin to DingTalk group robots: signed
// outbound webhook sends, inbound callback verification, and the payload
// shapes the robot API speaks.
package dingtalk

import (
	"regexp"

	v "github.com/cohesivestack/valgo"

	errs "github.com/theapemachine/mnemo/pkg/errors"
)

const DefaultTimeoutSeconds = 10

var (
	httpURLRe = regexp.MustCompile(`^https?://`)
	bindRe    = regexp.MustCompile(`^[^:]*:\d{1,5}$`)
)

/*
Config carries everything the adapter needs for both directions. Outbound
needs the fixed webhook plus its signing secret; inbound needs the app secret
the callbacks are signed with; AgentEndpoint is the optional downstream agent
runtime messages are relayed to.
*/
type Config struct {
	OutboundWebhook string
	OutboundSecret  string
	AppSecret       string
	Bind            string
	AgentEndpoint   string
	TimeoutSeconds  int
}

// Validate checks the shape of whatever is set. A failed validation is fatal
// to setup; the half-specific required fields (webhook secret, app secret)
// are enforced by the constructors that need them.
func (config *Config) Validate() error {
	val := v.Is(v.String(config.Bind, "bind").Not().Blank().MatchingTo(bindRe)).
		Is(v.Number(config.TimeoutSeconds, "timeout_seconds").Between(1, 120))

	if config.OutboundWebhook != "" {
		val.Is(v.String(config.OutboundWebhook, "outbound_webhook").MatchingTo(httpURLRe))
	}
	if config.AgentEndpoint != "" {
		val.Is(v.String(config.AgentEndpoint, "agent_endpoint").MatchingTo(httpURLRe))
	}

	if !val.Valid() {
		return errs.NewError("dingtalk config", val.Error())
	}
	return nil
}
