package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rifalibre/rifa-api/internal/api"
	"github.com/rifalibre/rifa-api/internal/config"
	"github.com/rifalibre/rifa-api/internal/db"
	"github.com/rifalibre/rifa-api/internal/logger"
)

const configFile = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("config.Load(%v) -> %w", configFile, err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("logger.Init -> %w", err)
	}

	postgresDB, err := openDatabase(conf.Postgres)
	if err != nil {
		return fmt.Errorf("openDatabase -> %w", err)
	}

	s := api.NewServer(conf, postgresDB)

	addr := ":" + conf.API.Port
	zap.L().Info("starting server",
		zap.String("addr", addr),
		zap.String("environment", conf.API.Environment))

	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("s.Router.Run -> %w", err)
	}

	return nil
}

// openDatabase prefers a full DATABASE_URL (hosted environments inject
// one) over the assembled per-field config.
func openDatabase(conf *config.PostgresConfig) (*gorm.DB, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return db.OpenPostgresWithURL(url)
	}

	return db.OpenPostgres(conf)
}
