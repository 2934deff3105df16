package monitor

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

var _ Notifier = (*SlackClient)(nil)

// SlackClient posts guardian alerts to a Slack channel. With no token
// configured it degrades to logging only, which keeps the guardian usable
// in local setups.
type SlackClient struct {
	logger  zerolog.Logger
	client  *slack.Client
	channel string
}

func NewSlackClient(logger zerolog.Logger, token, channel string) *SlackClient {
	sc := &SlackClient{
		logger:  logger.With().Str("module", "monitor").Logger(),
		channel: channel,
	}
	if token != "" {
		sc.client = slack.New(token)
	}
	return sc
}

// Notify surfaces every alert it is handed as a single message. The guardian
// only forwards alerts it has not reported yet, so nothing is filtered here;
// a dropped pending-edit alert would defeat the edit delay.
func (sc *SlackClient) Notify(alerts []Alert) {
	messages := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		messages = append(messages, alert.Message)
	}

	if len(messages) == 0 {
		return
	}

	message := strings.Join(messages, "\n")
	sc.logger.Warn().Msg(message)

	if sc.client == nil {
		return
	}
	if _, _, err := sc.client.PostMessage(sc.channel, slack.MsgOptionText(message, false)); err != nil {
		sc.logger.Err(err).Msg("failed to post slack message")
	}
}
