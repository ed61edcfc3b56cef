package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"
)

var _ Broker = &HTTPBroker{}

// HTTPBrokerConfig configures the HTTP broker, which POSTs published messages
// to endpoint/{topic}. It exists for local development, where a simple HTTP
// server stands in for broker infrastructure.
type HTTPBrokerConfig struct {
	Endpoint string `koanf:"endpoint"`
	// TopicFilter is a list of topics that should be sent over HTTP. If empty, all topics are sent.
	TopicFilter []string `koanf:"topicfilter"`
}

func NewHTTPBroker(config HTTPBrokerConfig, underlyingBroker Broker) Broker {
	return HTTPBroker{
		underlyingBroker: underlyingBroker,
		endpoint:         config.Endpoint,
		topicFilter:      config.TopicFilter,
		client:           &http.Client{Timeout: 5 * time.Second},
	}
}

type HTTPBroker struct {
	underlyingBroker Broker
	endpoint         string
	topicFilter      []string
	client           *http.Client
}

func (h HTTPBroker) ReceiveFromQueue(queue Entity, handler func(context.Context, Message) error) error {
	if h.underlyingBroker == nil {
		return nil
	}
	return h.underlyingBroker.ReceiveFromQueue(queue, handler)
}

func (h HTTPBroker) Close(ctx context.Context) error {
	if h.underlyingBroker == nil {
		return nil
	}
	return h.underlyingBroker.Close(ctx)
}

func (h HTTPBroker) SendMessage(ctx context.Context, topic Entity, message *Message) error {
	if len(h.topicFilter) != 0 && !slices.Contains(h.topicFilter, topic.Name) {
		return nil
	}
	var errs []error
	if err := h.doSend(ctx, topic, message); err != nil {
		errs = append(errs, fmt.Errorf("failed to send message over HTTP: %w", err))
	}
	if h.underlyingBroker != nil {
		if err := h.underlyingBroker.SendMessage(ctx, topic, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h HTTPBroker) doSend(ctx context.Context, topic Entity, message *Message) error {
	var body bytes.Buffer
	if err := json.Compact(&body, message.Body); err != nil {
		return err
	}
	endpoint, err := url.Parse(h.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.JoinPath(topic.Name).String(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", message.ContentType)
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK response: %d", resp.StatusCode)
	}
	return nil
}
