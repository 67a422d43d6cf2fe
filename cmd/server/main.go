/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment
  2. Initialize SQLite store
  3. Wire mirrors (webhook or no-op)
  4. Create service, scheduler, API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: leave.db)
                  Use ":memory:" for in-memory database
  -cadence        Accrual trigger cadence: monthly | daily
  -balance-check  Booking balance policy: strict | borrow
  -recompute      Join-date recompute mode: replace | cumulative

ENVIRONMENT:
  CRON_SECRET           Bearer secret for /api/cron endpoints
  CALENDAR_WEBHOOK_URL  Calendar mirror endpoint (empty disables)
  STATUS_WEBHOOK_URL    Status mirror endpoint (empty disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Daily cadence behind a proxy that calls /api/cron/accrual each morning
  CRON_SECRET=s3cret ./server -cadence=daily

SEE ALSO:
  - api/server.go: Router configuration
  - leave/service.go: Core semantics
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daybreak/leave-engine/api"
	"github.com/daybreak/leave-engine/leave"
	"github.com/daybreak/leave-engine/mirror"
	"github.com/daybreak/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	cadence := flag.String("cadence", "monthly", "accrual cadence: monthly | daily")
	balanceCheck := flag.String("balance-check", "strict", "balance policy: strict | borrow")
	recompute := flag.String("recompute", "replace", "join-date recompute mode: replace | cumulative")
	flag.Parse()

	schedCadence, err := parseCadence(*cadence)
	if err != nil {
		log.Fatalf("Invalid -cadence: %v", err)
	}
	balancePolicy, err := parseBalancePolicy(*balanceCheck)
	if err != nil {
		log.Fatalf("Invalid -balance-check: %v", err)
	}
	recomputeMode, err := parseRecomputeMode(*recompute)
	if err != nil {
		log.Fatalf("Invalid -recompute: %v", err)
	}

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		log.Println("Warning: CRON_SECRET is empty, cron endpoints are disabled")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Mirrors
	var calendar leave.CalendarMirror = mirror.NoopCalendar{}
	if url := os.Getenv("CALENDAR_WEBHOOK_URL"); url != "" {
		calendar = mirror.NewWebhookCalendar(url)
		log.Printf("Calendar mirror enabled: %s", url)
	}
	var status leave.StatusMirror = mirror.NoopStatusBoard{}
	if url := os.Getenv("STATUS_WEBHOOK_URL"); url != "" {
		status = mirror.NewWebhookStatusBoard(url)
		log.Printf("Status mirror enabled: %s", url)
	}

	// Core wiring
	service := leave.NewService(store, calendar, status, balancePolicy)
	scheduler := leave.NewScheduler(store, schedCadence)
	handler := api.NewHandler(service, scheduler, store, recomputeMode)
	router := api.NewRouter(handler, cronSecret)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func parseCadence(s string) (leave.Cadence, error) {
	switch s {
	case "monthly":
		return leave.CadenceMonthly, nil
	case "daily":
		return leave.CadenceDaily, nil
	}
	return "", fmt.Errorf("must be monthly or daily, got %q", s)
}

func parseBalancePolicy(s string) (leave.BalancePolicy, error) {
	switch s {
	case "strict":
		return leave.PolicyStrict, nil
	case "borrow":
		return leave.PolicyBorrowAhead, nil
	}
	return "", fmt.Errorf("must be strict or borrow, got %q", s)
}

func parseRecomputeMode(s string) (leave.RecomputeMode, error) {
	switch s {
	case "replace":
		return leave.RecomputeReplace, nil
	case "cumulative":
		return leave.RecomputeCumulative, nil
	}
	return "", fmt.Errorf("must be replace or cumulative, got %q", s)
}
