package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

const slackHookPrefix = "https://hooks.slack.com/services/"

// slackHookID matches the T.../B.../secret tail of a webhook URL
var slackHookID = regexp.MustCompile(`^[A-Z0-9]{9,15}/[A-Z0-9]{9,15}/[0-9a-zA-Z_+/-]{18,32}$`)

// ParseSlackTargets splits a "|"-separated list of webhook URLs or bare hook
// ids. Bare ids are expanded to full URLs; anything that is not https is
// dropped.
func ParseSlackTargets(spec string) []string {
	var urls []string
	for _, target := range strings.Split(spec, "|") {
		target = strings.TrimSpace(target)
		if slackHookID.MatchString(target) {
			target = slackHookPrefix + target
		}
		if strings.HasPrefix(strings.ToLower(target), "https://") {
			urls = append(urls, target)
		}
	}
	return urls
}

// SlackOptions tunes webhook delivery
type SlackOptions struct {
	Attempts      int
	RetryInterval time.Duration
	Timeout       time.Duration
}

// DefaultSlackOptions retries a webhook five times, three seconds apart
func DefaultSlackOptions() SlackOptions {
	return SlackOptions{Attempts: 5, RetryInterval: 3 * time.Second, Timeout: 60 * time.Second}
}

// SlackChannel posts notices to incoming webhooks
type SlackChannel struct {
	urls   []string
	client *req.Client
}

type slackMessage struct {
	Text string `json:"text"`
}

// NewSlackChannel posts to every url in turn
func NewSlackChannel(urls []string, opts SlackOptions) *SlackChannel {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	client := req.C().
		SetTimeout(opts.Timeout).
		SetCommonRetryCount(opts.Attempts-1).
		SetCommonRetryFixedInterval(opts.RetryInterval).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.IsErrorState()
		})
	return &SlackChannel{urls: urls, client: client}
}

// Post sends text to every webhook. A failing webhook does not keep the
// others from receiving the message; all failures are returned together.
func (c *SlackChannel) Post(ctx context.Context, text string) error {
	var errs []error
	for i, url := range c.urls {
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(&slackMessage{Text: text}).
			Post(url)
		if err != nil {
			errs = append(errs, fmt.Errorf("slack webhook #%d: %w", i+1, err))
			continue
		}
		if resp.IsErrorState() {
			errs = append(errs, fmt.Errorf("slack webhook #%d: status %d", i+1, resp.StatusCode))
		}
	}
	return errors.Join(errs...)
}
