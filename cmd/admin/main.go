package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"saldo/internal/domain/ledger"
	"saldo/internal/domain/transaction"
	"saldo/internal/infrastructure/postgres"
	"saldo/internal/infrastructure/redislock"
	"saldo/internal/shared/auth"
	"saldo/internal/shared/config"
	"saldo/internal/shared/logging"
)

const usage = `Saldo Admin CLI - Management commands for the Saldo API

Usage:
  admin <command> [options]

Commands:
  migrate      Apply (up) or roll back (down) the database schema
  reconcile    Recompute account balances from transaction history and report drift
  token        Issue a signed access token for local testing

Examples:
  # Apply all pending migrations
  admin migrate up

  # Check specific accounts
  admin reconcile --account-id=3f1c...,9a2e...

  # Check every account and rewrite drifting balances
  admin reconcile --all --fix

  # Run with custom worker count and timeout
  admin reconcile --all --workers=8 --timeout=1h

  # Issue a token for a user
  admin token --subject=<user-id>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		runMigrate(os.Args[2:])
	case "reconcile":
		runReconcile(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, zerolog.Logger) {
	cfg, err := config.Load("saldo.toml")
	if err != nil {
		logging.New("info", "console").Fatal().Err(err).Msg("failed to load config")
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

func connect(cfg *config.Config, logger zerolog.Logger) *postgres.DB {
	if cfg.Database.Driver != "postgres" {
		logger.Fatal().Str("driver", cfg.Database.Driver).Msg("admin commands require the postgres driver")
	}
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	logger.Info().Str("db", cfg.Database.DBName).Msg("connected to database")
	return db
}

func runMigrate(args []string) {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	cfg, logger := loadConfig()
	db := connect(cfg, logger)
	defer db.Close()

	var err error
	switch direction {
	case "up":
		err = postgres.Migrate(db, cfg.Database.DBName, logger)
	case "down":
		err = postgres.MigrateDown(db, cfg.Database.DBName)
	default:
		fmt.Printf("Unknown migrate direction: %s (want up or down)\n", direction)
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("direction", direction).Msg("migration failed")
	}
	logger.Info().Str("direction", direction).Msg("migration complete")
}

func runReconcile(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)

	accountIDStr := fs.String("account-id", "", "Account ID(s) to check (comma-separated for multiple)")
	allAccounts := fs.Bool("all", false, "Check every account")
	workers := fs.Int("workers", transaction.DefaultWorkerCount, "Number of concurrent workers")
	fix := fs.Bool("fix", false, "Rewrite drifting balances with the recomputed value")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin reconcile [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin reconcile --account-id=a1")
		fmt.Println("  admin reconcile --account-id=a1,a2,a3")
		fmt.Println("  admin reconcile --all")
		fmt.Println("  admin reconcile --all --fix --workers=8 --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *accountIDStr == "" && !*allAccounts {
		fmt.Println("Error: must specify --account-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		fmt.Printf("Invalid timeout format: %v\n", err)
		os.Exit(1)
	}

	cfg, logger := loadConfig()
	db := connect(cfg, logger)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var locker ledger.Locker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		locker = redislock.New(client, redislock.Options{
			Expiry:     cfg.Redis.LockExpiry,
			Tries:      cfg.Redis.LockTries,
			RetryDelay: cfg.Redis.LockRetryDelay,
		}, logger)
	}
	coord := ledger.NewCoordinator(locker, cfg.Ledger.LockTimeout)
	reconciler := transaction.NewReconciler(postgres.NewLedgerStore(db), coord, logger, *workers)

	var accountIDs []string
	if *allAccounts {
		accountIDs, err = postgres.NewAccountRepository(db).ListIDs(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to list accounts")
		}
		logger.Info().Int("accounts", len(accountIDs)).Msg("found accounts")
	} else {
		for _, p := range strings.Split(*accountIDStr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				accountIDs = append(accountIDs, p)
			}
		}
	}

	if len(accountIDs) == 0 {
		logger.Info().Msg("no accounts to process")
		return
	}

	logger.Info().
		Int("accounts", len(accountIDs)).
		Int("workers", *workers).
		Bool("fix", *fix).
		Msg("starting reconcile")
	startTime := time.Now()

	result := reconciler.Reconcile(ctx, accountIDs, *fix)
	printResult(result)

	logger.Info().Dur("elapsed", time.Since(startTime)).Msg("reconcile completed")
	if len(result.Errors) > 0 || (!*fix && len(result.Drifts) > 0) {
		os.Exit(2)
	}
}

func printResult(result *transaction.ReconcileResult) {
	fmt.Printf("\n=== Reconcile ===\n")
	fmt.Printf("  Accounts checked: %d\n", result.AccountsChecked)
	fmt.Printf("  Drifts found:     %d\n", len(result.Drifts))

	for _, d := range result.Drifts {
		status := "reported"
		if d.Fixed {
			status = "fixed"
		}
		fmt.Printf("    - %s stored=%s expected=%s diff=%s (%s)\n",
			d.AccountID, d.Stored.StringFixed(2), d.Expected.StringFixed(2), d.Diff().StringFixed(2), status)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:           %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)

	subject := fs.String("subject", "", "User ID carried as the token subject")
	email := fs.String("email", "", "Optional email claim")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Println("Error: must specify --subject")
		fs.Usage()
		os.Exit(1)
	}

	cfg, logger := loadConfig()
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is not set")
	}

	token, err := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Generate(*subject, *email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to issue token")
	}
	fmt.Println(token)
}
