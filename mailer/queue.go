package mailer

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/dependencies/broker"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Queue publish the mails to a broker topic, a Worker delivers them.
type Queue struct {
	broker *broker.Broker
	topic  string
	from   string
}

// Send enqueue the message keyed by the recipient
func (q *Queue) Send(ctx context.Context, msg *Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	out := *msg
	if out.From == "" {
		out.From = q.from
	}
	body, err := json.Marshal(&out)
	if err != nil {
		return status.Errorf(codes.Internal, "marshal mail: %v", err)
	}
	if err = q.broker.Publish(ctx, q.topic, &broker.Message{
		Header: map[string]string{broker.HeaderKey: out.To},
		Body:   body,
	}); err != nil {
		return status.Errorf(codes.Unavailable, "queue mail: %v", err)
	}
	return nil
}

// Worker consume the queue of the mail and deliver every message with deliver.
// A failed delivery is logged and left unacknowledged.
func Worker(ctx context.Context, m *Mail, group string, deliver Mailer) error {
	q, ok := m.Mailer.(*Queue)
	if !ok {
		return status.Error(codes.FailedPrecondition, "the mailer is not a queue")
	}
	logger := log.Extract(ctx).Action("mailer.Worker")
	return q.broker.Subscribe(ctx, []string{q.topic}, group, func(p broker.Publication) error {
		var msg Message
		if err := json.Unmarshal(p.Message().Body, &msg); err != nil {
			logger.Warn("drop malformed mail: %v", err)
			return nil
		}
		if err := deliver.Send(ctx, &msg); err != nil {
			logger.Error("deliver mail to %s: %v", msg.To, err)
			return err
		}
		return nil
	}, true)
}
