package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/bundlewatch/go-restock-sweep/internal/aws"
	"github.com/bundlewatch/go-restock-sweep/internal/catalog"
	"github.com/bundlewatch/go-restock-sweep/internal/config"
	"github.com/bundlewatch/go-restock-sweep/internal/handlers"
	"github.com/bundlewatch/go-restock-sweep/internal/notify"
	"github.com/bundlewatch/go-restock-sweep/internal/state"
	"github.com/bundlewatch/go-restock-sweep/internal/sweep"
)

func buildRunner(cfg *config.Config, clients *aws.Clients) (*sweep.Runner, *state.Store) {
	store := state.NewStore(clients.DynamoDB, cfg.StateTable)
	cat := catalog.NewClient(cfg.ShopDomain, cfg.CatalogToken, cfg.CatalogAPIVersion)
	dispatcher := notify.NewDispatcher(notify.NewClient(cfg.NotifyAPIKey, cfg.NotifyListID))

	runner := sweep.NewRunner(cat, store, dispatcher)
	runner.LockTTL = cfg.LockTTL
	runner.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	if cfg.ReportQueueURL != "" {
		runner.Reporter = aws.NewPublisher(clients.SQS, cfg.ReportQueueURL)
	}
	return runner, store
}

func setupRouter(cfg *config.Config, runner *sweep.Runner, store *state.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterSweepRoutes(r, handlers.SweepConfig{
		Runner:      runner,
		Secret:      cfg.SweepSecret,
		MaxDuration: cfg.MaxSweepDuration,
	})
	handlers.RegisterSubscriptionRoutes(r, handlers.SubscriptionsConfig{Store: store})

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	runner, store := buildRunner(cfg, clients)
	r := setupRouter(cfg, runner, store)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		log.Printf("running local server on %s", cfg.HTTPAddr)
		if err := r.Run(cfg.HTTPAddr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
