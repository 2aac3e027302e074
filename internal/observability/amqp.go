package observability

import (
	"context"
	"sync"
)

// Publisher is the part of the AMQP publisher that domain events need.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type headerPublisher interface {
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var (
	defaultPublisher Publisher
	publisherMu      sync.RWMutex
)

func SetPublisher(publisher Publisher) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	defaultPublisher = publisher
}

// PublishEvent sends message through the configured publisher. Without one
// it is a no-op.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	publisherMu.RLock()
	publisher := defaultPublisher
	publisherMu.RUnlock()
	if publisher == nil {
		return nil
	}

	var err error
	if hp, ok := publisher.(headerPublisher); ok && len(headers) > 0 {
		err = hp.PublishWithHeaders(ctx, routingKey, message, headers)
	} else {
		err = publisher.Publish(ctx, routingKey, message)
	}
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
