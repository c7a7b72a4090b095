// The worker is the cron surface: an EventBridge scheduled rule invokes it
// and it runs one sweep, sharing the lock with the HTTP trigger so the two
// entry points can never sweep concurrently.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/bundlewatch/go-restock-sweep/internal/aws"
	"github.com/bundlewatch/go-restock-sweep/internal/catalog"
	"github.com/bundlewatch/go-restock-sweep/internal/config"
	"github.com/bundlewatch/go-restock-sweep/internal/notify"
	"github.com/bundlewatch/go-restock-sweep/internal/state"
	"github.com/bundlewatch/go-restock-sweep/internal/sweep"
)

func buildRunner(cfg *config.Config, clients *aws.Clients) *sweep.Runner {
	store := state.NewStore(clients.DynamoDB, cfg.StateTable)
	cat := catalog.NewClient(cfg.ShopDomain, cfg.CatalogToken, cfg.CatalogAPIVersion)
	dispatcher := notify.NewDispatcher(notify.NewClient(cfg.NotifyAPIKey, cfg.NotifyListID))

	runner := sweep.NewRunner(cat, store, dispatcher)
	runner.LockTTL = cfg.LockTTL
	runner.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	if cfg.ReportQueueURL != "" {
		runner.Reporter = aws.NewPublisher(clients.SQS, cfg.ReportQueueURL)
	}
	return runner
}

func runSweep(ctx context.Context, cfg *config.Config, runner *sweep.Runner) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.MaxSweepDuration)
	defer cancel()

	summary, err := runner.Run(ctx)
	if errors.Is(err, state.ErrLockHeld) {
		// another sweep is active; the next scheduled tick will catch up
		log.Printf("[worker] sweep already running, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("[worker] sweep run=%s products=%d emails=%d errors=%d",
		summary.RunID, summary.ProductsProcessed, summary.EmailNotifications, summary.ProductErrors)
	return nil
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

	runner := buildRunner(cfg, clients)

	// If RUN_LOCAL=true, execute a single sweep directly for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		if err := runSweep(context.Background(), cfg, runner); err != nil {
			log.Fatalf("local sweep error: %v", err)
		}
		return
	}

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) error {
		log.Printf("[worker] scheduled trigger source=%s", ev.Source)
		return runSweep(ctx, cfg, runner)
	})
}
