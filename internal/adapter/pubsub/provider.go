package pubsub

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/webitel/im-presence-service/config"
)

// Provider hands out the publisher and per-queue subscribers of one broker.
type Provider interface {
	Publisher() message.Publisher
	// Subscriber returns a subscriber whose queues are suffixed with queue,
	// so every consumer group gets its own copy of each topic.
	Subscriber(queue string) (message.Subscriber, error)
	Close() error
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) (Provider, error) {
	switch cfg.Broker.Driver {
	case config.DriverMemory, "":
		return NewMemoryProvider(logger), nil
	case config.DriverAMQP:
		return NewAMQPProvider(cfg.Broker.AMQP, logger)
	}
	return nil, fmt.Errorf("pubsub: unknown driver %q", cfg.Broker.Driver)
}

// memoryProvider shares one in-process channel between publisher and all
// subscribers.
type memoryProvider struct {
	ch *gochannel.GoChannel
}

func NewMemoryProvider(logger watermill.LoggerAdapter) Provider {
	return &memoryProvider{
		ch: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

func (p *memoryProvider) Publisher() message.Publisher { return p.ch }

func (p *memoryProvider) Subscriber(string) (message.Subscriber, error) { return p.ch, nil }

func (p *memoryProvider) Close() error { return p.ch.Close() }

type amqpProvider struct {
	uri    string
	logger watermill.LoggerAdapter
	pub    *amqp.Publisher

	mu   sync.Mutex
	subs []*amqp.Subscriber
}

func NewAMQPProvider(cfg config.AMQPConfig, logger watermill.LoggerAdapter) (Provider, error) {
	pub, err := amqp.NewPublisher(
		amqp.NewDurablePubSubConfig(cfg.URI, amqp.GenerateQueueNameTopicNameWithSuffix(cfg.Queue)),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("pubsub: amqp publisher: %w", err)
	}
	return &amqpProvider{uri: cfg.URI, logger: logger, pub: pub}, nil
}

func (p *amqpProvider) Publisher() message.Publisher { return p.pub }

func (p *amqpProvider) Subscriber(queue string) (message.Subscriber, error) {
	sub, err := amqp.NewSubscriber(
		amqp.NewDurablePubSubConfig(p.uri, amqp.GenerateQueueNameTopicNameWithSuffix(queue)),
		p.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("pubsub: amqp subscriber %s: %w", queue, err)
	}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
	return sub, nil
}

func (p *amqpProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := []error{p.pub.Close()}
	for _, s := range p.subs {
		errs = append(errs, s.Close())
	}
	p.subs = nil
	return errors.Join(errs...)
}
