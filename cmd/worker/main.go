// Command worker runs the enrichment pipeline as a long-lived queue
// consumer. It long-polls the intake queue, enriches each request, and
// stops cleanly on SIGTERM or SIGINT: records already claimed finish on
// their own deadline before the process exits.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/vocab-enricher/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
