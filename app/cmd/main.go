package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragserver/app/server"
	"ragserver/types"
)

func init() {
	loadEnvVariables()
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := types.LoadConfigFromEnv()
	s := server.NewServer(cfg, sugar)

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	sugar.Info("received shutdown signal, shutting down server...")
	s.Stop()
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
}
