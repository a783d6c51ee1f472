// Package mailer send the transactional mails of the api.
//
//	log://local?from=noreply@devcamper.io            write the mails to the log
//	http://127.0.0.1:8025/api/send?token=x&timeout=5s post them to a mail relay
//	kafka://127.0.0.1:9092/devcamper-mail            queue them for a Worker
//	memory://local/devcamper-mail                    queue them in the process
package mailer

import (
	"context"
	"net/url"

	"github.com/saba2003/devcamper-api/dependencies/broker"
	"github.com/saba2003/devcamper-api/dependencies/http"
	"github.com/saba2003/devcamper-api/dependencies/uri"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Mailer deliver one message
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Message a plain text mail
type Message struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// sender the query options shared by every scheme
type sender struct {
	From     string
	FromName string
}

func (s sender) address() string {
	if s.FromName == "" {
		return s.From
	}
	return s.FromName + " <" + s.From + ">"
}

// Mail the mailer dependency chosen by the uri scheme
type Mail struct {
	Mailer
	closer func(ctx context.Context) error
}

// New mailer by uri
func New(ctx context.Context, rawURI string) (*Mail, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, err
	}
	m := &Mail{}
	return m, m.Init(ctx, u)
}

// Init by uri
func (m *Mail) Init(ctx context.Context, u *url.URL) error {
	var s sender
	if err := uri.DecodeQuery(u.Query(), &s); err != nil {
		return err
	}
	switch u.Scheme {
	case "log":
		m.Mailer = &Log{from: s.address()}
	case "http", "https":
		client := &http.HTTP{}
		if err := client.Init(ctx, u); err != nil {
			return err
		}
		m.Mailer = &Relay{client: client, from: s.address()}
		m.closer = client.Close
	default:
		b := &broker.Broker{}
		if err := b.Init(ctx, u); err != nil {
			return err
		}
		m.Mailer = &Queue{broker: b, topic: b.Topic(), from: s.address()}
		m.closer = b.Close
	}
	return nil
}

// Close the transport of the mailer
func (m *Mail) Close(ctx context.Context) error {
	if m.closer == nil {
		return nil
	}
	return m.closer(ctx)
}

func validate(msg *Message) error {
	if msg == nil || msg.To == "" {
		return status.Error(codes.InvalidArgument, "mail recipient is required")
	}
	return nil
}
