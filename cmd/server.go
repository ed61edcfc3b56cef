package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SanteonNL/medex/negotiator/ehr"
	"github.com/SanteonNL/medex/negotiator/events"
	"github.com/SanteonNL/medex/negotiator/healthcheck"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/logging"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/messaging"
	"github.com/SanteonNL/medex/negotiator/negotiation"
	"github.com/SanteonNL/medex/negotiator/negotiation/subscriptions"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/SanteonNL/medex/negotiator/sdc"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Start runs the negotiator until the given context is cancelled or the
// process receives SIGINT or SIGTERM, then shuts down gracefully.
func Start(ctx context.Context, config Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(logging.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logging.SlogLevel(config.LogLevel)}),
	}))

	tracerProvider, err := otel.Initialize(ctx, config.OpenTelemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down OpenTelemetry tracer provider")
		}
	}()

	// Set up dependencies
	messageBroker, err := messaging.New(config.Messaging, []messaging.Entity{negotiation.TaskUpdatedEvent{}.Topic()})
	if err != nil {
		return fmt.Errorf("failed to create message broker: %w", err)
	}
	defer func() {
		if err := messageBroker.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to close message broker")
		}
	}()
	eventManager := events.NewManager(messageBroker)

	store, err := taskstore.New(config.TaskStore)
	if err != nil {
		return fmt.Errorf("failed to create task store: %w", err)
	}
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close task store")
			}
		}
	}()

	// Register services
	services := []Service{healthcheck.New()}
	if config.Negotiation.Enabled {
		contextSource, err := newContextSource(config.EHR)
		if err != nil {
			return fmt.Errorf("failed to create EHR context source: %w", err)
		}
		questionnaireLoader, err := newQuestionnaireLoader(config.Negotiation.Questionnaires)
		if err != nil {
			return fmt.Errorf("failed to create questionnaire loader: %w", err)
		}
		services = append(services, negotiation.New(config.Negotiation, store, eventManager, contextSource, questionnaireLoader))
	}
	httpHandler := http.NewServeMux()
	for _, service := range services {
		service.RegisterHandlers(httpHandler)
	}

	if config.Subscriptions.Enabled {
		subscriptionManager := subscriptions.NewManager(config.Public.ParseURL().JoinPath("fhir"), subscriptions.StaticChannelFactory{
			Endpoints: config.Subscriptions.Endpoints,
		})
		if err := subscriptionManager.Start(eventManager); err != nil {
			return fmt.Errorf("failed to start subscription manager: %w", err)
		}
	}

	// Start HTTP server
	httpServer := &http.Server{
		Addr:    config.Public.Address,
		Handler: otelhttp.NewHandler(httpHandler, "negotiator"),
	}
	serverError := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()
	select {
	case err := <-serverError:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func newContextSource(config ehr.Config) (negotiation.ContextBundleSource, error) {
	if config.FHIR.BaseURL == "" {
		// Without an EHR, parties supply the population context inline.
		return nil, nil
	}
	return ehr.New(config)
}

func newQuestionnaireLoader(config negotiation.QuestionnairesConfig) (sdc.QuestionnaireLoader, error) {
	if config.FHIR.BaseURL == "" {
		// Without a questionnaire server, parties supply questionnaires inline.
		return nil, nil
	}
	_, client, err := coolfhir.NewFHIRAuthRoundTripper(config.FHIR, coolfhir.Config())
	if err != nil {
		return nil, err
	}
	return sdc.NewCachingQuestionnaireLoader(sdc.NewFhirApiQuestionnaireLoader(client), config.CacheTTL), nil
}

type Service interface {
	RegisterHandlers(mux *http.ServeMux)
}
