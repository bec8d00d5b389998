package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/routes"
	"github.com/unknownitems/unknownitems/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = zap.L().Sync() }()

	db := config.InitDatabase(
		&models.User{},
		&models.Profile{},
		&models.Follow{},
		&models.Post{},
		&models.Media{},
		&models.Tag{},
		&models.PostTag{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.CommentLike{},
	)

	utils.StartMediaSweeper(db, time.Duration(cfg.MediaSweepInterval)*time.Minute)

	router := routes.SetupRouter(db)

	zap.L().Info("server starting", zap.String("port", cfg.AppPort))
	if err := utils.GraceServer(":"+cfg.AppPort, router); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
