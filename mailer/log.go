package mailer

import (
	"context"

	"github.com/saba2003/devcamper-api/log"
)

// Log write the mails to the log, for development.
type Log struct {
	from string
}

// Send log the message
func (l *Log) Send(ctx context.Context, msg *Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = l.from
	}
	log.Extract(ctx).With(map[string]any{
		"action":  "mailer.Send",
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
