// Package webhook delivers a best-effort, fire-and-forget notification to
// the configured URL after a successful upload. Delivery never blocks the
// Upload Worker and never alters journal state.
package webhook

import (
	"fmt"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/daemonerr"
	"github.com/go-resty/resty/v2"
)

const requestTimeout = 30 * time.Second

// Logger is the subset of logging the notifier needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Notifier posts to a single configured webhook URL.
type Notifier struct {
	url  string
	http *resty.Client
	log  Logger
}

// New constructs a Notifier. An empty url disables delivery; Notify then
// becomes a no-op, so the daemon can run with an unconfigured webhook.
func New(url string, log Logger) *Notifier {
	return &Notifier{
		url:  url,
		http: resty.New().SetTimeout(requestTimeout),
		log:  log,
	}
}

// Notify fires a short-lived goroutine posting the clip's filename, public
// URL, and capture timestamp as form fields. It never returns an error to
// the caller — delivery failure is logged and nothing else.
func (n *Notifier) Notify(filename, publicURL string, capturedAt time.Time) {
	if n.url == "" {
		return
	}

	go func() {
		resp, err := n.http.R().
			SetFormData(map[string]string{
				"arquivo":   filename,
				"url":       publicURL,
				"data_hora": capturedAt.Format("2006-01-02 15:04:05"),
			}).
			Post(n.url)
		if err != nil {
			n.log.Warn("webhook delivery failed", "err", &daemonerr.WebhookFailedError{Err: err})
			return
		}
		if resp.StatusCode() != 200 {
			n.log.Warn("webhook delivery failed", "err", &daemonerr.WebhookFailedError{Err: fmt.Errorf("webhook returned %d", resp.StatusCode())})
		}
	}()
}
