package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/teyvattales/config"
	"github.com/cppla/teyvattales/routes"
	"github.com/cppla/teyvattales/storage"
	"github.com/cppla/teyvattales/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if err := run(cfg); err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}

// run owns every process-wide resource and releases it on the way out.
func run(cfg config.AppConfig) error {
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			utils.Logger.Warn("close database", zap.Error(err))
		}
	}()

	rdb, err := utils.NewRedis(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			utils.Logger.Warn("close redis", zap.Error(err))
		}
	}()

	files, err := storage.NewFromConfig(context.Background(), cfg)
	if err != nil {
		return err
	}

	r, err := routes.SetupRouter(cfg, routes.Deps{
		DB:       db,
		Sessions: utils.NewSessionStore(rdb, cfg.SessionSecret, cfg.SessionIdle()),
		Files:    files,
	})
	if err != nil {
		return err
	}

	utils.Sugar.Infof("Starting %s on port %s (graceful)", cfg.ForumName, cfg.AppPort)
	return utils.GraceServer(":"+cfg.AppPort, r)
}
