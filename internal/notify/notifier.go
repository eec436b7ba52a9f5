// Package notify is the integration seam between the threat engine and
// external paging/chat/email. The engine only guarantees the hook contract:
// dispatch never raises, never blocks the caller and carries no retry
// discipline of its own.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/wardenhq/warden/internal/logger"
)

// Notifier receives security-team notification payloads. Implementations
// must return quickly; anything slow belongs in a goroutine of their own.
type Notifier interface {
	Notify(notificationType string, payload map[string]interface{})
}

// Shoutrrr fans a notification out to operator-configured service URLs
// (discord://, slack://, smtp://, ...). Delivery is fire-and-forget; errors
// are logged and swallowed.
type Shoutrrr struct {
	urls []string
}

// NewShoutrrr returns a dispatcher for the given service URLs.
func NewShoutrrr(urls []string) *Shoutrrr {
	return &Shoutrrr{urls: urls}
}

var _ Notifier = (*Shoutrrr)(nil)

func (n *Shoutrrr) Notify(notificationType string, payload map[string]interface{}) {
	if len(n.urls) == 0 {
		return
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf("%v", payload))
	}
	msg := fmt.Sprintf("[warden] %s\n\n%s", notificationType, body)

	for _, url := range n.urls {
		go func(url string) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(map[string]interface{}{
						"event": "notification_dispatch_panic",
					}).Errorf("notification dispatch panicked: %v", r)
				}
			}()
			if err := shoutrrr.Send(url, msg); err != nil {
				logger.WithFields(map[string]interface{}{
					"event":             "notification_dispatch_failed",
					"notification_type": notificationType,
				}).WithError(err).Error("external notification failed")
			}
		}(url)
	}
}
