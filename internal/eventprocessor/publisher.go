// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/moodscore/internal/breaker"
	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
)

// Publisher wraps a Watermill publisher with a circuit breaker and metrics.
type Publisher struct {
	publisher message.Publisher
	// subscriber is set for the in-process transport only.
	subscriber message.Subscriber
	transport  string
	cb         *breaker.Breaker

	mu     sync.RWMutex
	closed bool
}

// NewLogger returns the Watermill logger adapter routed through zerolog.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewChannelPublisher creates an in-process publisher. Subscribe on the
// returned Publisher receives what it publishes.
func NewChannelPublisher(logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = NewLogger()
	}
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Publisher{
		publisher:  ch,
		subscriber: ch,
		transport:  TransportChannel,
		cb:         breaker.New("events-"+TransportChannel, breaker.DefaultSettings()),
	}
}

// NewNATSPublisher creates a core NATS publisher. Connection attempts are
// retried in the background, so an unreachable server does not fail here.
func NewNATSPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("moodscore"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	settings := breaker.DefaultSettings()
	settings.Timeout = 30 * time.Second
	return &Publisher{
		publisher: pub,
		transport: TransportNATS,
		cb:        breaker.New("events-"+TransportNATS, settings),
	}, nil
}

// Transport returns TransportChannel or TransportNATS.
func (p *Publisher) Transport() string {
	return p.transport
}

// Publish sends msg to topic through the breaker.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	_, err := breaker.Execute(p.cb, func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})
	metrics.RecordPublish(p.transport, err)
	return err
}

// PublishEvent serializes and publishes event.
func (p *Publisher) PublishEvent(ctx context.Context, topic string, event *ScoreEvent) error {
	msg, err := ToMessage(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, msg)
}

// Subscribe is only available on the in-process transport; NATS consumers
// use their own client.
func (p *Publisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if p.subscriber == nil {
		return nil, fmt.Errorf("subscribe not supported on %s transport", p.transport)
	}
	return p.subscriber.Subscribe(ctx, topic)
}

// Close shuts the publisher down. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
