package main

import (
	"errors"
	"flag"
	"os"

	"tiered_social/internal/pkg/config"
	"tiered_social/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "file://migrations", "migration source")
	down := flag.Bool("down", false, "roll back all migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.InitLogger(cfg.App.Env, cfg.App.Debug)
	if err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	m, err := migrate.New(*dir, cfg.Database.DSN())
	if err != nil {
		log.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	if *down {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("migrate down", zap.Error(err))
		}
		log.Info("rolled back all migrations")
		return
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		// dirty 状态：强制回到上一版本后重试
		var dirty migrate.ErrDirty
		if !errors.As(err, &dirty) {
			log.Fatal("migrate up", zap.Error(err))
		}
		log.Warn("database is dirty, forcing previous version", zap.Int("version", dirty.Version))
		if err := m.Force(dirty.Version - 1); err != nil {
			log.Fatal("force version", zap.Error(err))
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("migrate up after force", zap.Error(err))
		}
	}

	version, dirty, _ := m.Version()
	log.Info("migration successful", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
