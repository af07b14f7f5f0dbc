package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/oakmont/xerosync/internal/auth/token"
	"github.com/oakmont/xerosync/internal/config"
	"github.com/oakmont/xerosync/internal/db"
	"github.com/oakmont/xerosync/internal/logger"
	"github.com/oakmont/xerosync/internal/secretbox"
	"github.com/oakmont/xerosync/internal/server"
	"github.com/oakmont/xerosync/internal/sync"
	"github.com/oakmont/xerosync/internal/version"
	"github.com/oakmont/xerosync/internal/xero"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "xerosync.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	zaplog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	zaplog.Info("starting xerosync",
		zap.String("version", version.Version),
		zap.String("addr", cfg.ListenAddr))

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return err
	}

	box, err := secretbox.New(cfg.EncryptionSecret, cfg.SigningSecret, zaplog)
	if err != nil {
		return err
	}

	settings := db.NewSettings(database)
	orderSyncs := db.NewOrderSyncs(database)

	tokens := token.NewManager(settings, box, zaplog)
	client := xero.NewClient(tokens, zaplog)
	engine := sync.NewEngine(tokens, client, settings, zaplog)

	srv := server.New(cfg, tokens, client, engine, settings, orderSyncs, zaplog)
	return http.ListenAndServe(cfg.ListenAddr, srv.Router())
}
