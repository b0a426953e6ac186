package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/Corewavemedia/Dustout-sub001/internal/authn"
	"github.com/Corewavemedia/Dustout-sub001/internal/config"
	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/handlers"
	"github.com/Corewavemedia/Dustout-sub001/internal/httpserver"
	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/migrations"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
	stripeClient "github.com/Corewavemedia/Dustout-sub001/internal/stripe"
)

func main() {
	// Best-effort: load environment variables from .env-style files in local
	// development. These calls are safe to ignore in production environments.
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logDBTarget("primary", cfg.DatabaseURL)
	configureDB(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if err := runMigrationsWithDirtyFix(db, "primary"); err != nil {
		log.Fatalf("failed to apply database migrations: %v", err)
	}

	// Stores, external clients and the verifier are created once here and
	// shared for the life of the process.
	users, err := store.New(db)
	if err != nil {
		log.Fatalf("failed to create user store: %v", err)
	}
	bookings, err := store.NewBookingStore(db)
	if err != nil {
		log.Fatalf("failed to create booking store: %v", err)
	}
	services, err := store.NewServiceStore(db)
	if err != nil {
		log.Fatalf("failed to create service store: %v", err)
	}
	staff, err := store.NewStaffStore(db)
	if err != nil {
		log.Fatalf("failed to create staff store: %v", err)
	}
	plans, err := store.NewPlanStore(db)
	if err != nil {
		log.Fatalf("failed to create plan store: %v", err)
	}
	subscriptions, err := store.NewSubscriptionStore(db)
	if err != nil {
		log.Fatalf("failed to create subscription store: %v", err)
	}
	calendar, err := store.NewCalendarStore(db)
	if err != nil {
		log.Fatalf("failed to create calendar store: %v", err)
	}
	analytics, err := store.NewAnalyticsStore(db)
	if err != nil {
		log.Fatalf("failed to create analytics store: %v", err)
	}
	checkout, err := store.NewCheckoutStore(db)
	if err != nil {
		log.Fatalf("failed to create checkout store: %v", err)
	}

	verifier, err := authn.NewFirebaseVerifier(context.Background(), cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatalf("failed to initialize token verifier: %v", err)
	}
	auth := middleware.NewAuthenticator(verifier, users)

	stripe := stripeClient.NewClient(cfg.StripeSecretKey)
	mailer := email.NewClient(cfg.ResendAPIKey, cfg.EmailFrom)

	srv := httpserver.New(cfg, auth, httpserver.Handlers{
		Auth:          handlers.NewAuthHandler(users),
		Bookings:      handlers.NewBookingHandler(bookings, services, staff, mailer),
		AdminBookings: handlers.NewAdminBookingHandler(bookings, services, staff, users, mailer),
		Services:      handlers.NewServiceHandler(services),
		Staff:         handlers.NewStaffHandler(staff),
		Plans:         handlers.NewPlanHandler(plans),
		Subscriptions: handlers.NewSubscriptionHandler(subscriptions, plans, stripe, mailer, cfg.FrontendBaseURL),
		AdminSubs:     handlers.NewAdminSubscriptionHandler(subscriptions, plans, users),
		Checkout:      handlers.NewCheckoutHandler(checkout, services, stripe, cfg.FrontendBaseURL),
		Webhook: &handlers.WebhookHandler{
			Subscriptions: subscriptions,
			Plans:         plans,
			Users:         users,
			Bookings:      bookings,
			Catalog:       services,
			Checkout:      checkout,
			Stripe:        stripe,
			Email:         mailer,
			WebhookSecret: cfg.StripeWebhookSecret,
		},
		Calendar:  handlers.NewCalendarHandler(calendar),
		Analytics: handlers.NewAnalyticsHandler(analytics),
	})

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("backend starting on %s", cfg.ServerAddress)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server exited with error: %v", err)
		os.Exit(1)
	}
}

func configureDB(db *sql.DB) {
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}

func runMigrationsWithDirtyFix(db *sql.DB, name string) error {
	if err := migrations.Up(db); err != nil {
		log.Printf("migrations(%s): error detected: %v (type: %T)", name, err, err)
		if strings.Contains(err.Error(), "Dirty database version") {
			log.Printf("migrations(%s): dirty database detected, attempting to fix...", name)
			if fixErr := migrations.FixDirtyDatabase(db); fixErr != nil {
				log.Printf("migrations(%s): failed to fix dirty database: %v", name, fixErr)
				return err
			}
			if retryErr := migrations.Up(db); retryErr != nil {
				return retryErr
			}
			return nil
		}
		return err
	}
	return nil
}

func logDBTarget(name, dsn string) {
	// Avoid logging secrets: only log hostname + database path.
	u, err := url.Parse(dsn)
	if err != nil {
		log.Printf("db(%s): configured (dsn parse error: %v)", name, err)
		return
	}
	log.Printf("db(%s): host=%s db=%s", name, u.Hostname(), strings.TrimPrefix(u.Path, "/"))
}
