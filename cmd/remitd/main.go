package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/casperflow/remitd/internal/config"
	"github.com/casperflow/remitd/internal/escrow"
	"github.com/casperflow/remitd/internal/http_api"
	"github.com/casperflow/remitd/internal/notificator"
	"github.com/casperflow/remitd/internal/repository"
	"github.com/casperflow/remitd/internal/treasury"
	"github.com/casperflow/remitd/pkg/logger"
	"github.com/casperflow/remitd/pkg/validation"
)

func main() {
	app := &cli.App{
		Name:  "remitd",
		Usage: "remitd is an escrow ledger service for pooled remittances",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "custody-service-url", Aliases: []string{"c"}, Usage: "Custody service URL"},
			&cli.StringFlag{Name: "chain-rpc-url", Aliases: []string{"r"}, Usage: "Chain RPC URL for settlement confirmation"},
			&cli.StringFlag{Name: "escrow-account", Aliases: []string{"e"}, Usage: "Escrow custody account principal"},
			&cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "Platform owner principal"},
			&cli.StringFlag{Name: "fee-collector", Aliases: []string{"f"}, Usage: "Fee collector principal"},
			&cli.Uint64Flag{Name: "default-fee-bps", Aliases: []string{"b"}, Usage: "Default platform fee in basis points"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("custody-service-url") {
		cfg.CustodyServiceURL = c.String("custody-service-url")
	}
	if c.IsSet("chain-rpc-url") {
		cfg.ChainRPCURL = c.String("chain-rpc-url")
	}
	if c.IsSet("escrow-account") {
		cfg.EscrowAccount = c.String("escrow-account")
	}
	if c.IsSet("owner") {
		cfg.OwnerPrincipal = c.String("owner")
	}
	if c.IsSet("fee-collector") {
		cfg.FeeCollector = c.String("fee-collector")
	}
	if c.IsSet("default-fee-bps") {
		cfg.DefaultFeeBps = c.Uint64("default-fee-bps")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Seed the platform configuration aggregate on first startup
	platformConfig, err := db.EnsurePlatformConfig(escrow.DefaultPlatformConfig(
		validation.NormalizePrincipal(cfg.OwnerPrincipal),
		validation.NormalizePrincipal(cfg.FeeCollector),
		cfg.DefaultFeeBps,
	))
	if err != nil {
		return fmt.Errorf("failed to initialize platform config: %v", err)
	}
	log.Info("Platform config loaded ", "owner ", platformConfig.Owner, "fee_bps ", platformConfig.FeeBps, "paused ", platformConfig.Paused)

	// Initialize settlement chain client (optional)
	var chain *treasury.Chain
	if cfg.ChainRPCURL != "" {
		chain = treasury.NewChain(cfg.ChainRPCURL, log)
		if err := chain.Run(); err != nil {
			return fmt.Errorf("failed to connect to chain RPC: %v", err)
		}
		defer chain.Close()
	}

	// Initialize treasury
	custody := treasury.NewCustody(cfg.CustodyServiceURL, chain, log)

	// Initialize notificator providers
	var telegramNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telegramNotif, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	var emailNotif *notificator.EmailNotificator
	if cfg.SMTPHost != "" && len(cfg.EmailRecipients) > 0 {
		emailNotif = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender, cfg.EmailRecipients)
	}
	var webhookNotif *notificator.WebhookNotificator
	if cfg.WebhookURL != "" {
		webhookNotif = notificator.NewWebhookNotificator(log, cfg.WebhookURL)
	}
	notif := notificator.NewNotificator(log, telegramNotif, emailNotif, webhookNotif)

	// Create the escrow engine
	engine := escrow.NewEngine(db, custody, notif, log, validation.NormalizePrincipal(cfg.EscrowAccount))

	// Initialize API server
	apiServer := http_api.NewHTTPServer(engine, cfg.APIPort, log)

	go apiServer.Start()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down API server: ", err)
	}

	return nil
}
