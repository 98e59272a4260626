package main

import (
	"log"
	"net/http"
	"os"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/config"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/serverapp"
)

func main() {
	cfgPath := "questhall_config.yml"
	if v := os.Getenv("QUESTHALL_CONFIG"); v != "" {
		cfgPath = v
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("load config: %v", err)
		}
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("apply env overrides: %v", err)
	}

	app, err := serverapp.New(serverapp.Options{
		Config: cfg,
		Logger: log.Default(),
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	log.Printf("listening on %s (storage=%s)", cfg.Server.Addr, cfg.Storage.Backend)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, app.Handler()))
}
