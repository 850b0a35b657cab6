// Command billing runs the internal billing process: period and invoice
// computation, the three scheduled jobs, pricing/usage summaries, and the
// admin and customer-facing billing APIs (spec.md §2, §4.5–§4.8, §6).
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/korberlin/apigateway/internal/adminaudit"
	"github.com/korberlin/apigateway/internal/analytics"
	"github.com/korberlin/apigateway/internal/billing"
	"github.com/korberlin/apigateway/internal/catalog"
	"github.com/korberlin/apigateway/internal/customer"
	"github.com/korberlin/apigateway/internal/gateway/ratelimit"
	"github.com/korberlin/apigateway/internal/httpapi/billingapi"
	"github.com/korberlin/apigateway/internal/trustednet"
	"github.com/korberlin/apigateway/internal/usage"
	"github.com/korberlin/apigateway/pkg/audit"
	"github.com/korberlin/apigateway/pkg/config"
	"github.com/korberlin/apigateway/pkg/email"
	"github.com/korberlin/apigateway/pkg/httpserver"
	"github.com/korberlin/apigateway/pkg/logger"
	"github.com/korberlin/apigateway/pkg/mongo"
	"github.com/korberlin/apigateway/pkg/opensearch"
	"github.com/korberlin/apigateway/pkg/pg"
	"github.com/korberlin/apigateway/pkg/redis"
)

// billingConfig is the billing process's environment-variable surface. Only
// PG, Redis, Port, and AdminSecret are mandatory (spec.md §6); everything
// else gates an optional SPEC_FULL §12 subsystem and is wired only when its
// value is non-empty, so a deployment without OpenSearch/Mongo/S3/Postmark
// configured still starts cleanly.
type billingConfig struct {
	PG    pg.Config
	Redis redis.Config

	Port                 int      `env:"PORT" envDefault:"8081"`
	AdminSecret          string   `env:"ADMIN_SECRET,required"`
	PaymentWebhookSecret string   `env:"PAYMENT_WEBHOOK_SECRET" envDefault:""`
	TrustedAdminCIDRs    []string `env:"TRUSTED_ADMIN_CIDRS" envSeparator:","`
	LogFormat            string   `env:"LOG_FORMAT" envDefault:"json"`

	// SPEC_FULL §12.6: invoice archival to S3. Disabled unless Bucket+Region
	// are both set.
	ArchiveBucket string `env:"INVOICE_ARCHIVE_BUCKET" envDefault:""`
	ArchiveRegion string `env:"INVOICE_ARCHIVE_REGION" envDefault:""`
	ArchivePrefix string `env:"INVOICE_ARCHIVE_PREFIX" envDefault:"invoices/"`

	// SPEC_FULL §12.1/§11: outbound webhook + billing-email notifications.
	// Disabled unless SenderEmail/SupportEmail are set; Postmark tokens
	// further gate whether mail actually sends or lands in the dev sender.
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:""`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:""`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN" envDefault:""`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN" envDefault:""`
	DevMailDir           string `env:"DEV_MAIL_DIR" envDefault:"./tmp/mail"`

	// SPEC_FULL §11: usage analytics, projected into OpenSearch.
	OpenSearchAddresses []string `env:"OPENSEARCH_ADDRESSES" envSeparator:","`
	OpenSearchUsername  string   `env:"OPENSEARCH_USERNAME" envDefault:""`
	OpenSearchPassword  string   `env:"OPENSEARCH_PASSWORD" envDefault:""`

	// SPEC_FULL §12.5: admin audit trail, stored in MongoDB.
	MongoURL      string `env:"MONGODB_URL" envDefault:""`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"apigateway"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg billingConfig
	config.MustLoad(&cfg)

	format := logger.FormatJSON
	if cfg.LogFormat == "text" {
		format = logger.FormatText
	}
	log := logger.New(logger.WithFormat(format))

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("billing: failed to connect to durable store", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("billing: failed to connect to fast store", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	catalogStore := catalog.NewPGStore(pool)
	custStore := customer.NewPGStore(pool)
	usageStore := usage.NewPGStore(pool)
	usageBuf := usage.NewBuffer(rdb)
	billingStore := billing.NewPGStore(pool)
	limiter := ratelimit.New(rdb, time.Local)

	periods := billing.NewPeriodCalculator(billingStore, custStore, log)
	tierSource := billingapi.NewTierSource(catalogStore, custStore)
	pricing := billing.NewPricing(tierSource, periods, usageStore)

	var notifier billing.Notifier
	if cfg.SenderEmail != "" && cfg.SupportEmail != "" {
		mailer, err := buildMailer(cfg)
		if err != nil {
			log.Error("billing: failed to build mailer", "error", err)
			os.Exit(1)
		}
		targets := billing.NewDirectoryNotifyTargets(custStore, catalogStore)
		notifier = billing.NewWebhookNotifier(targets, targets, mailer, log)
	}

	var archiver billing.Archiver
	if cfg.ArchiveBucket != "" && cfg.ArchiveRegion != "" {
		s3Client, err := buildS3Client(ctx, cfg)
		if err != nil {
			log.Error("billing: failed to build S3 client", "error", err)
			os.Exit(1)
		}
		archiver = billing.NewS3Archiver(s3Client, cfg.ArchiveBucket, cfg.ArchivePrefix, log)
	}

	engine := billing.NewEngine(billingStore, usageStore, notifier, archiver, periods)
	scheduler := billing.NewScheduler(engine, log)
	go scheduler.Run(ctx)

	var analyticsSvc *analytics.Analytics
	if len(cfg.OpenSearchAddresses) > 0 {
		osClient, err := opensearch.New(ctx, opensearch.Config{
			Addresses: cfg.OpenSearchAddresses,
			Username:  cfg.OpenSearchUsername,
			Password:  cfg.OpenSearchPassword,
		})
		if err != nil {
			log.Error("billing: failed to connect to analytics index", "error", err)
			os.Exit(1)
		}
		analyticsSvc = analytics.New(osClient)
	}

	var adminAudit audit.Logger
	if cfg.MongoURL != "" {
		db, err := mongo.NewWithDatabase(ctx, mongo.Config{ConnectionURL: cfg.MongoURL}, cfg.MongoDatabase)
		if err != nil {
			log.Error("billing: failed to connect to audit store", "error", err)
			os.Exit(1)
		}
		adminAudit = audit.NewLogger(adminaudit.NewMongoStorage(db))
	}

	var trustedNet *trustednet.Guard
	if len(cfg.TrustedAdminCIDRs) > 0 {
		trustedNet, err = trustednet.New(cfg.TrustedAdminCIDRs)
		if err != nil {
			log.Error("billing: invalid TRUSTED_ADMIN_CIDRS", "error", err)
			os.Exit(1)
		}
	}

	router := billingapi.Router(billingapi.Deps{
		Invoices:  engine,
		Periods:   periods,
		Pricing:   pricing,
		Store:     billingStore,
		Catalog:   catalogStore,
		Customers: custStore,
		UsageDB:   usageStore,
		UsageBuf:  usageBuf,
		Limiter:   limiter,
		Analytics: analyticsSvc,

		AdminSecret: cfg.AdminSecret,
		TrustedNet:  trustedNet,
		AdminAudit:  adminAudit,

		PaymentWebhookSecret: cfg.PaymentWebhookSecret,

		Log: log,
	})

	srv := httpserver.New(
		httpserver.WithAddr(":"+strconv.Itoa(cfg.Port)),
		httpserver.WithLogger(log),
	)

	log.Info("billing: starting", "port", cfg.Port)
	if err := srv.Run(ctx, router); err != nil {
		log.Error("billing: server stopped with error", "error", err)
		os.Exit(1)
	}
}

// buildMailer picks the Postmark-backed sender when both tokens are
// configured, falling back to the teacher's filesystem dev sender
// otherwise — the same dev/prod split pkg/email ships for every other
// service built on it.
func buildMailer(cfg billingConfig) (email.EmailSender, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return email.NewDevSender(cfg.DevMailDir), nil
	}
	return email.NewPostmarkClient(email.Config{
		PostmarkServerToken:  cfg.PostmarkServerToken,
		PostmarkAccountToken: cfg.PostmarkAccountToken,
		SenderEmail:          cfg.SenderEmail,
		SupportEmail:         cfg.SupportEmail,
	})
}

// buildS3Client loads the default AWS config for ArchiveRegion and returns a
// plain *s3.Client, which satisfies pkg/file.S3Client directly.
func buildS3Client(ctx context.Context, cfg billingConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.ArchiveRegion))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}
