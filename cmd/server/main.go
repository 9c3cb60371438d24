package main

import (
	"fmt"
	"strings"

	"fyp-portal/internal/auth"
	"fyp-portal/internal/config"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/notify"
	"fyp-portal/internal/server"
	"fyp-portal/internal/service"
	"fyp-portal/internal/storage"
)

func main() {
	cfg := config.Load()
	logutils.SetLevel(cfg.LogLevel)

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logutils.Log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logutils.Log.Fatalf("migration failed: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logutils.Log.Fatalf("seeding admin failed: %v", err)
	}

	blobs, err := storage.NewDirStore(cfg.BlobRoot, "/"+strings.Trim(cfg.BlobBaseURL, "/"))
	if err != nil {
		logutils.Log.Fatalf("blob storage: %v", err)
	}
	inbox := notify.NewInbox(db)
	notifier := notify.Fanout{inbox, notify.Logger{}}

	svc := service.New(db, blobs, notifier, service.Options{
		AllowReviewEditAfterCompletion: cfg.AllowReviewEditAfterCompletion,
		ExtensionWindow:                cfg.ExtensionWindow,
	})

	r := server.NewRouter(cfg, server.Deps{
		DB:     db,
		Svc:    svc,
		Inbox:  inbox,
		Blobs:  blobs,
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL),
	})

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logutils.Log.Infof("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		logutils.Log.Fatalf("server error: %v", err)
	}
}
