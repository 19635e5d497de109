package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	mysql_adapter "github.com/biberdw/zeobase-account/internal/app/core/adapter/out/mysql"
	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/internal/app/core/usecase"
	"github.com/biberdw/zeobase-account/pkg/logging"
	"github.com/biberdw/zeobase-account/pkg/mysql"
)

// Seeds users with one account each, through the real use case so account
// numbers are issued the same way as in production.
func main() {
	var (
		configPath     = flag.String("config", "config/config.yaml", "config file")
		totalUsers     = flag.Int("users", 100, "users to create")
		initialBalance = flag.Int64("balance", 10000, "starting balance in minor units")
	)
	flag.Parse()

	cfgData, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg struct {
		MySQL mysql.Config `yaml:"mysql"`
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 10
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 2
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	client, err := mysql.NewClient(cfg.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer client.Close()

	store, err := mysql_adapter.NewStore(client)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	accounts := usecase.NewAccountUseCase(store, store, nil, logging.NewNop())

	ctx := context.Background()
	log.Printf("Seeding %d users with balance %d...", *totalUsers, *initialBalance)

	for i := 1; i <= *totalUsers; i++ {
		userID := int64(i)
		if err := store.PutUser(ctx, &domain.User{ID: userID}); err != nil {
			log.Fatalf("Failed to seed user %d: %v", userID, err)
		}
		result, err := accounts.CreateAccount(ctx, userID, *initialBalance)
		if err != nil {
			log.Fatalf("Failed to create account for user %d: %v", userID, err)
		}
		if i == 1 || i == *totalUsers {
			log.Printf("user %d -> account %s", userID, result.AccountNumber)
		}
	}

	log.Printf("Seeded %d users.", *totalUsers)
}
