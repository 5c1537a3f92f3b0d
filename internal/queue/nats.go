package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// NatsPublisher publishes events on "<prefix>.<listing id>" subjects so
// subscribers can follow one listing or all of them with a wildcard.
type NatsPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNatsPublisher(url, prefix string, opts ...nats.Option) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject events of listingID are published on.
func (p *NatsPublisher) Subject(listingID uint64) string {
	return p.prefix + "." + strconv.FormatUint(listingID, 10)
}

func (p *NatsPublisher) Publish(_ context.Context, ev notify.Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.nc.Publish(p.Subject(ev.ListingID), body)
}

// Close drains pending messages then closes the connection.
func (p *NatsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}
