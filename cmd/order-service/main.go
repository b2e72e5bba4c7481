package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"gitub.com/matheusmosca/ecommerce-order-engine/internal/inventory"
	"gitub.com/matheusmosca/ecommerce-order-engine/internal/order"
	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/cache"
	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/events"
	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/storage"
)

func main() {
	// Initialize OpenTelemetry
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	mp, err := initMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down meter: %v", err)
		}
	}()

	// Initialize database
	pool, err := storage.NewPool(context.Background(), storage.Config{
		User:     getEnv("DATABASE_USER", "root"),
		Password: getEnv("DATABASE_PASSWORD", "pass"),
		Host:     getEnv("DATABASE_HOST", "localhost"),
		Port:     getEnv("DATABASE_PORT", "5432"),
		Database: getEnv("DATABASE_NAME", "orders_db"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	// Cache de leitura de produtos (Redis opcional)
	var productCache cache.Cache = cache.NoopCache{}
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		redisCache := cache.NewRedisCache(addr)
		defer redisCache.Close()
		productCache = redisCache
	}

	// Publicador de eventos (Kafka opcional)
	var publisher events.Publisher = events.NoopPublisher{}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(brokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Initialize dependencies
	productRepository := inventory.NewPostgresProductRepository(pool)
	productUseCase := inventory.NewProductUseCase(productRepository, productCache)
	orderRepository := order.NewPostgresOrderRepository(pool)
	orderUseCase := order.NewOrderUseCase(orderRepository, productRepository, publisher, productUseCase)

	tracer := tp.Tracer("order-service")
	orderHandler := order.NewOrderHandler(orderUseCase, tracer)
	productHandler := inventory.NewProductHandler(productUseCase, tracer)

	// Setup Gin router
	r := gin.Default()
	r.Use(otelgin.Middleware(getEnv("SERVICE_NAME", "order-service")))
	r.Use(identityMiddleware())

	// Health check
	r.GET("/health", orderHandler.HealthCheck)

	api := r.Group("/api")
	{
		orders := api.Group("/orders")
		orders.POST("", requireIdentity(), orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/my-orders", requireIdentity(), orderHandler.GetMyOrders)
		orders.GET("/status/:status", orderHandler.GetOrdersByStatus)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/status", requireIdentity(), orderHandler.UpdateStatus)
		orders.POST("/:id/cancel", requireIdentity(), orderHandler.CancelOrder)

		products := api.Group("/products")
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
	}

	port := getEnv("PORT", "8080")
	log.Printf("🚀 Order Service listening on port %s", port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// identityMiddleware extrai a identidade já autenticada pelo gateway.
// A validação do token é responsabilidade do provedor de identidade
// externo; aqui o core só precisa do user id do chamador.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(order.UserIDKey, userID)
		}
		c.Next()
	}
}

// requireIdentity bloqueia rotas mutadoras sem identidade de chamador
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(order.UserIDKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}
		c.Next()
	}
}

func initTracer() (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	otlpEndpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(otlpEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(getEnv("SERVICE_NAME", "order-service")),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMetrics() (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	otlpEndpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(otlpEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(getEnv("SERVICE_NAME", "order-service")),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
