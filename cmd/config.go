package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/SanteonNL/medex/negotiator/ehr"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/messaging"
	"github.com/SanteonNL/medex/negotiator/negotiation"
	"github.com/SanteonNL/medex/negotiator/negotiation/subscriptions"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	// Public holds the configuration for the public interface.
	Public InterfaceConfig `koanf:"public"`
	// Negotiation holds the configuration for the negotiation service.
	Negotiation negotiation.Config `koanf:"negotiation"`
	// TaskStore holds the configuration for negotiation task persistence.
	TaskStore taskstore.Config `koanf:"taskstore"`
	// EHR holds the configuration of the FHIR API that supplies the patient
	// context used to pre-fill questionnaires.
	EHR ehr.Config `koanf:"ehr"`
	// Subscriptions holds the configuration for notifying the negotiating
	// parties of task updates.
	Subscriptions subscriptions.Config `koanf:"subscriptions"`
	Messaging     messaging.Config     `koanf:"messaging"`
	LogLevel      zerolog.Level        `koanf:"loglevel"`
	StrictMode    bool                 `koanf:"strictmode"`
	// OpenTelemetry holds the configuration for observability
	OpenTelemetry otel.Config `koanf:"opentelemetry"`
}

func (c Config) Validate() error {
	if err := c.TaskStore.Validate(c.StrictMode); err != nil {
		return fmt.Errorf("invalid task store configuration: %w", err)
	}
	if err := c.Messaging.Validate(c.StrictMode); err != nil {
		return fmt.Errorf("invalid messaging configuration: %w", err)
	}
	if err := c.Subscriptions.Validate(); err != nil {
		return fmt.Errorf("invalid subscriptions configuration: %w", err)
	}
	if err := c.OpenTelemetry.Validate(); err != nil {
		return fmt.Errorf("invalid OpenTelemetry configuration: %w", err)
	}
	if c.Public.URL == "" {
		return errors.New("public base URL is not configured")
	}
	_, err := url.Parse(c.Public.URL)
	if err != nil {
		return errors.New("invalid public base URL")
	}
	return nil
}

// InterfaceConfig holds the configuration for an HTTP interface.
type InterfaceConfig struct {
	// Address holds the address to listen on.
	Address string `koanf:"address"`
	// URL holds the base URL of the interface.
	// Set it in case the service is behind a reverse proxy that maps it to a different URL than root (/).
	URL string `koanf:"url"`
}

func (i InterfaceConfig) ParseURL() *url.URL {
	u, _ := url.Parse(i.URL)
	return u
}

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	result := DefaultConfig()
	err := loadConfigInto(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func loadConfigInto(target any) error {
	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue("MEDEX_", ".", func(key string, value string) (string, interface{}) {
		key = strings.Replace(strings.ToLower(strings.TrimPrefix(key, "MEDEX_")), "_", ".", -1)
		if len(value) == 0 {
			return key, nil
		}
		sliceValues := splitWithEscaping(value, ",", "\\")
		for i, s := range sliceValues {
			sliceValues[i] = strings.TrimSpace(s)
		}
		var parsedValue any = sliceValues
		if len(sliceValues) == 1 {
			parsedValue = sliceValues[0]
		}
		return key, parsedValue
	}), nil)
	if err != nil {
		return err
	}
	return k.Unmarshal("", target)
}

func splitWithEscaping(s, separator, escape string) []string {
	s = strings.ReplaceAll(s, escape+separator, "\x00")
	tokens := strings.Split(s, separator)
	for i, token := range tokens {
		tokens[i] = strings.ReplaceAll(token, "\x00", separator)
	}
	return tokens
}

// DefaultConfig returns sensible, but not complete, default configuration values.
func DefaultConfig() Config {
	return Config{
		LogLevel:   zerolog.InfoLevel,
		StrictMode: true,
		Public: InterfaceConfig{
			Address: ":8080",
			URL:     "/",
		},
		Negotiation:   negotiation.DefaultConfig(),
		TaskStore:     taskstore.DefaultConfig(),
		EHR:           ehr.DefaultConfig(),
		Subscriptions: subscriptions.DefaultConfig(),
		OpenTelemetry: otel.DefaultConfig(),
	}
}
