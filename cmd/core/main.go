package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	http_adapter "github.com/biberdw/zeobase-account/internal/app/core/adapter/in/http"
	memory_adapter "github.com/biberdw/zeobase-account/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/biberdw/zeobase-account/internal/app/core/adapter/out/mysql"
	"github.com/biberdw/zeobase-account/internal/app/core/usecase"
	"github.com/biberdw/zeobase-account/pkg/logging"
	"github.com/biberdw/zeobase-account/pkg/mysql"
	"github.com/biberdw/zeobase-account/pkg/wal"
)

type Config struct {
	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Store struct {
		// Driver: "memory" (WAL-backed maps) or "mysql"
		Driver  string `yaml:"driver"`
		WALPath string `yaml:"wal_path"`
	} `yaml:"store"`
	MySQL mysql.Config   `yaml:"mysql"`
	Log   logging.Config `yaml:"log"`
}

// stores is the full set of ports; both adapters satisfy all of them.
type stores interface {
	usecase.UserDirectory
	usecase.AccountDirectory
	usecase.TransactionStore
}

func main() {
	// 1. Load config
	cfg := loadConfig()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Pick the store
	var store stores
	switch cfg.Store.Driver {
	case "mysql":
		dbClient, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			logger.Fatal("mysql connection failed", zap.Error(err))
		}
		defer dbClient.Close()

		store, err = mysql_adapter.NewStore(dbClient)
		if err != nil {
			logger.Fatal("mysql store init failed", zap.Error(err))
		}
	case "memory", "":
		walFile, err := wal.Open(cfg.Store.WALPath)
		if err != nil {
			logger.Fatal("wal open failed", zap.Error(err))
		}
		defer walFile.Close()

		store, err = memory_adapter.NewStore(walFile)
		if err != nil {
			logger.Fatal("memory store init failed", zap.Error(err))
		}
	default:
		logger.Fatal("unknown store driver", zap.String("driver", cfg.Store.Driver))
	}

	// 3. Wire usecases and the HTTP adapter. One lock registry for both, so
	// account closes serialize against balance operations.
	locks := usecase.NewAccountLocks()
	transactions := usecase.NewTransactionUseCase(store, store, store, locks, logger.Named("transaction"))
	accounts := usecase.NewAccountUseCase(store, store, locks, logger.Named("account"))
	handler := http_adapter.NewHandler(transactions, accounts)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.Register(app)

	// 4. Metrics on a separate listener so the service port stays clean
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := app.Shutdown(); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	_ = metricsSrv.Close()
	logger.Info("server exited")
}

func loadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfgData, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// Defaults for anything the yaml leaves out
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Store.WALPath == "" {
		cfg.Store.WALPath = "wal.log"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}
