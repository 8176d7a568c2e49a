package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crudlab/itemstore/internal/database"
	"github.com/crudlab/itemstore/internal/domain"
	"github.com/crudlab/itemstore/internal/repository"
	"github.com/crudlab/itemstore/internal/server"
	"github.com/crudlab/itemstore/internal/service"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, log zerolog.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop()

	// The server gets 5 seconds to finish in-flight requests.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if dbService != nil {
		if err := dbService.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database connection pool")
		} else {
			log.Info().Msg("database connection pool closed")
		}
	}

	log.Info().Msg("server exiting")
	done <- true
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	dbService, err := database.New(database.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	gormDB := dbService.GetDB()
	if err := gormDB.AutoMigrate(&domain.Item{}); err != nil {
		log.Fatal().Err(err).Msg("failed to auto-migrate database")
	}

	itemRepo := repository.NewGormItemRepository(gormDB)
	itemService := service.NewItemService(itemRepo, log)
	apiServer := server.NewServer(itemService, dbService, log)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, log, done)

	log.Info().Str("addr", apiServer.Addr).Msg("starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	<-done
	log.Info().Msg("graceful shutdown complete")
}
