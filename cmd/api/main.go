package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"commerce-klaviyo-layer/internal/application"
	"commerce-klaviyo-layer/internal/application/event_handlers"
	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/infrastructure/klaviyo"
	"commerce-klaviyo-layer/internal/infrastructure/metrics"
	"commerce-klaviyo-layer/internal/infrastructure/pubsub"
	"commerce-klaviyo-layer/internal/infrastructure/repository"
	"commerce-klaviyo-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "commerce"
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(mongoDatabase)

	// Repositories
	configRepo := repository.NewMongoConfigRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	// Metrics
	collector := metrics.New(prometheus.DefaultRegisterer)

	// Application services. The environment API key fallback is resolved
	// once here, not re-read per call.
	clientFactory := klaviyo.NewFactory(logger)
	klaviyoService := application.NewKlaviyoService(
		configRepo,
		clientFactory,
		os.Getenv("KLAVIYO_API_KEY"),
		collector,
		logger,
	)

	// Event dispatch: intake publishes to the bus, the dispatcher consumes
	// and fans out to handlers.
	dispatcher := application.NewEventDispatcher(logger)
	dispatcher.RegisterHandler(event_handlers.NewOrderHandler(orderRepo, klaviyoService, logger))
	dispatcher.RegisterHandler(event_handlers.NewFulfillmentHandler(orderRepo, klaviyoService, logger))

	bus := pubsub.NewEventPubSub(logger)
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()

	channel := bus.Subscribe(busCtx, nil)
	go func() {
		for event := range channel.Events {
			dispatcher.Dispatch(busCtx, event)
		}
	}()

	validate := validator.New(validator.WithRequiredStructEnabled())

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Admin configuration boundary
	r.Get("/admin/klaviyo", getConfigHandler(klaviyoService, logger))
	r.Post("/admin/klaviyo", updateConfigHandler(klaviyoService, validate, logger))

	// Subscription management
	r.Post("/admin/klaviyo/subscribe", subscribeNewsletterHandler(klaviyoService, validate, logger))
	r.Post("/admin/klaviyo/subscribe/sms", subscribeSMSHandler(klaviyoService, validate, logger))
	r.Post("/admin/klaviyo/unsubscribe", unsubscribeNewsletterHandler(klaviyoService, logger))
	r.Post("/admin/klaviyo/unsubscribe/sms", unsubscribeSMSHandler(klaviyoService, logger))
	r.Post("/admin/klaviyo/test", testOrderHandler(klaviyoService, orderRepo, logger))

	// Commerce event intake
	r.Post("/events/commerce", commerceEventHandler(bus, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting Klaviyo integration layer")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// configResponse is the admin boundary shape for configuration reads and
// writes. The id key is always present and null until a row exists.
type configResponse struct {
	ID        *string               `json:"id"`
	Config    *domain.KlaviyoConfig `json:"config"`
	HasAPIKey bool                  `json:"has_api_key"`
	IsEnabled bool                  `json:"is_enabled"`
}

func getConfigHandler(svc *application.KlaviyoService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		config, err := svc.GetConfig(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to fetch Klaviyo configuration")
			respondError(w, http.StatusInternalServerError, "Failed to fetch Klaviyo configuration", err)
			return
		}

		hasKey, err := svc.HasAPIKey(ctx)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch Klaviyo configuration", err)
			return
		}
		enabled, err := svc.IsEnabled(ctx)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch Klaviyo configuration", err)
			return
		}

		resp := configResponse{Config: config, HasAPIKey: hasKey, IsEnabled: enabled}
		if config == nil {
			// No row yet: report the defaults an update would start from.
			resp.Config = domain.NewKlaviyoConfig()
		} else {
			resp.ID = &config.ID
		}

		respondJSON(w, http.StatusOK, resp)
	}
}

func updateConfigHandler(svc *application.KlaviyoService, validate *validator.Validate, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var update domain.ConfigUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}
		if err := validate.Struct(update); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}

		config, err := svc.UpdateConfig(ctx, update)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to update Klaviyo configuration")
			respondError(w, http.StatusInternalServerError, "Failed to update Klaviyo configuration", err)
			return
		}

		hasKey, _ := svc.HasAPIKey(ctx)
		enabled, _ := svc.IsEnabled(ctx)

		respondJSON(w, http.StatusOK, configResponse{
			ID:        &config.ID,
			Config:    config,
			HasAPIKey: hasKey,
			IsEnabled: enabled,
		})
	}
}

func subscribeNewsletterHandler(svc *application.KlaviyoService, validate *validator.Validate, logger zerolog.Logger) http.HandlerFunc {
	type request struct {
		domain.NewsletterSubscription
		Email string `json:"email" validate:"required,email"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}
		req.NewsletterSubscription.Email = req.Email
		if err := validate.Struct(req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}

		result, err := svc.SubscribeToNewsletter(r.Context(), req.NewsletterSubscription)
		if err != nil {
			writeSubscriptionError(w, logger, "Failed to subscribe to newsletter", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{"result": result})
	}
}

func subscribeSMSHandler(svc *application.KlaviyoService, validate *validator.Validate, logger zerolog.Logger) http.HandlerFunc {
	type request struct {
		domain.SMSSubscription
		PhoneNumber string `json:"phone_number" validate:"required"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}
		req.SMSSubscription.PhoneNumber = req.PhoneNumber
		if err := validate.Struct(req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request data", err)
			return
		}

		result, err := svc.SubscribeToSMS(r.Context(), req.SMSSubscription)
		if err != nil {
			writeSubscriptionError(w, logger, "Failed to subscribe to SMS", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{"result": result})
	}
}

func unsubscribeNewsletterHandler(svc *application.KlaviyoService, logger zerolog.Logger) http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required", err)
			return
		}

		result, err := svc.UnsubscribeFromNewsletter(r.Context(), req.Email)
		if err != nil {
			writeSubscriptionError(w, logger, "Failed to unsubscribe from newsletter", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{"result": result})
	}
}

func unsubscribeSMSHandler(svc *application.KlaviyoService, logger zerolog.Logger) http.HandlerFunc {
	type request struct {
		PhoneNumber string `json:"phone_number"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
			respondError(w, http.StatusBadRequest, "phone_number is required", err)
			return
		}

		result, err := svc.UnsubscribeFromSMS(r.Context(), req.PhoneNumber)
		if err != nil {
			writeSubscriptionError(w, logger, "Failed to unsubscribe from SMS", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{"result": result})
	}
}

// testOrderHandler fires a Placed Order event for a stored order so
// operators can verify the integration end to end.
func testOrderHandler(svc *application.KlaviyoService, orders ports.OrderRepository, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID := r.URL.Query().Get("order_id")
		if orderID == "" {
			respondError(w, http.StatusBadRequest, "order_id is required", nil)
			return
		}

		order, err := orders.GetOrder(ctx, orderID)
		if err != nil {
			respondError(w, http.StatusNotFound, "Order not found", err)
			return
		}

		result, err := svc.TrackOrderPlaced(ctx, order)
		if err != nil {
			writeSubscriptionError(w, logger, "Failed to track test event", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"order_id": order.ID,
			"result":   result,
		})
	}
}

func commerceEventHandler(bus *pubsub.EventPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event domain.CommerceEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid event payload", err)
			return
		}
		if event.Name == "" {
			respondError(w, http.StatusBadRequest, "event name is required", nil)
			return
		}

		logger.Info().Str("event", event.Name).Msg("Commerce event received")
		bus.Publish(&event)

		respondJSON(w, http.StatusAccepted, map[string]string{"received": "true"})
	}
}

func writeSubscriptionError(w http.ResponseWriter, logger zerolog.Logger, message string, err error) {
	if errors.Is(err, application.ErrNotEnabled) {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	logger.Error().Err(err).Msg(message)
	respondError(w, http.StatusInternalServerError, message, err)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]interface{}{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	respondJSON(w, status, body)
}
