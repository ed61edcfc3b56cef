package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var _ Broker = &DataHubBroker{}

// DataHubBrokerConfig configures forwarding of published messages to the
// Santeon DataHub ingress, which collects them for analytics.
type DataHubBrokerConfig struct {
	Endpoint string `koanf:"endpoint"`
}

// NewDataHubBroker decorates the given broker, POST-ing every published message
// to the DataHub endpoint as compacted JSON. DataHub delivery and delivery to
// the underlying broker are independent, failure of one does not stop the other.
func NewDataHubBroker(config DataHubBrokerConfig, underlyingBroker Broker) Broker {
	return DataHubBroker{
		underlyingBroker: underlyingBroker,
		endpoint:         config.Endpoint,
		client:           &http.Client{Timeout: 30 * time.Second},
	}
}

type DataHubBroker struct {
	underlyingBroker Broker
	endpoint         string
	client           *http.Client
}

func (h DataHubBroker) ReceiveFromQueue(queue Entity, handler func(context.Context, Message) error) error {
	if h.underlyingBroker == nil {
		return nil
	}
	return h.underlyingBroker.ReceiveFromQueue(queue, handler)
}

func (h DataHubBroker) Close(ctx context.Context) error {
	if h.underlyingBroker == nil {
		return nil
	}
	return h.underlyingBroker.Close(ctx)
}

func (h DataHubBroker) SendMessage(ctx context.Context, topic Entity, message *Message) error {
	var errs []error
	if err := h.doSend(ctx, message); err != nil {
		errs = append(errs, fmt.Errorf("failed to forward message to DataHub: %w", err))
	}
	if h.underlyingBroker != nil {
		if err := h.underlyingBroker.SendMessage(ctx, topic, message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		log.Ctx(ctx).Debug().Msgf("Forwarded message to DataHub (topic=%s)", topic.Name)
	}
	return errors.Join(errs...)
}

func (h DataHubBroker) doSend(ctx context.Context, message *Message) error {
	var body bytes.Buffer
	if err := json.Compact(&body, message.Body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
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
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("received non-OK response: %d with body: %s", resp.StatusCode, detail)
	}
	return nil
}
