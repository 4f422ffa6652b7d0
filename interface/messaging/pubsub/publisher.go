package pubsub

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/utils"
)

type publisherOptions struct {
	maxRetries    int
	retryDelay    time.Duration
	clientOptions []option.ClientOption
}

type PublisherOption func(o *publisherOptions)

// WithMaxRetries sets the number of retries of a message failing with a temporary error
func WithMaxRetries(maxRetries int) PublisherOption {
	return func(o *publisherOptions) {
		o.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the delay before the first retry (doubled at each retry)
func WithRetryDelay(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		o.retryDelay = d
	}
}

// WithClientOptions sets the options of the pubsub client (e.g. endpoint of an emulator)
func WithClientOptions(opts ...option.ClientOption) PublisherOption {
	return func(o *publisherOptions) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// Publisher implements messaging.Publisher
type Publisher struct {
	client     *pubsub.Client
	topic      *pubsub.Topic
	maxRetries int
	retryDelay time.Duration
}

// NewPublisher creates a pubsub publisher
func NewPublisher(ctx context.Context, projectID, topic string, opts ...PublisherOption) (*Publisher, error) {
	clOpts := publisherOptions{retryDelay: time.Second}
	for _, o := range opts {
		o(&clOpts)
	}

	client, err := pubsub.NewClient(ctx, projectID, clOpts.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("NewPublisher.NewClient: %w", err)
	}

	return &Publisher{client: client, topic: client.Topic(topic), maxRetries: clOpts.maxRetries, retryDelay: clOpts.retryDelay}, nil
}

// Publish implements messaging.Publisher
// It blocks until every message is acknowledged by the server.
func (p *Publisher) Publish(ctx context.Context, data ...[]byte) error {
	d := p.retryDelay
	for retry := 0; len(data) > 0; retry++ {
		if retry > 0 {
			log.Logger(ctx).Sugar().Debugf("publish: retry %d/%d of %d message(s)", retry, p.maxRetries, len(data))
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			d *= 2
		}

		results := make([]*pubsub.PublishResult, len(data))
		for i := range data {
			results[i] = p.topic.Publish(ctx, &pubsub.Message{Data: data[i]})
		}

		var failed [][]byte
		for i, r := range results {
			// Block until the result is returned and a server-generated ID is returned for the published message.
			if _, err := r.Get(ctx); err != nil {
				if !utils.Retriable(err) || retry >= p.maxRetries {
					return fmt.Errorf("Publish: %w", err)
				}
				failed = append(failed, data[i])
			}
		}
		data = failed
	}
	return nil
}

// Stop flushes the pending messages and releases the client
func (p *Publisher) Stop() error {
	p.topic.Stop()
	return p.client.Close()
}
