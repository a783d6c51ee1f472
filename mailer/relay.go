package mailer

import (
	"context"
	"net/http"

	dephttp "github.com/saba2003/devcamper-api/dependencies/http"
)

// Relay post the mails as json to a mail relay
type Relay struct {
	client *dephttp.HTTP
	from   string
}

// NewRelay on an http client
func NewRelay(client *dephttp.HTTP, from string) *Relay {
	return &Relay{client: client, from: from}
}

// Send the message to the relay path of the uri
func (r *Relay) Send(ctx context.Context, msg *Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	out := *msg
	if out.From == "" {
		out.From = r.from
	}
	return r.client.Request(ctx, http.MethodPost, "", nil, &out, nil)
}
