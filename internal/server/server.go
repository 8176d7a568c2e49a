package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"github.com/crudlab/itemstore/internal/database"
	"github.com/crudlab/itemstore/internal/service"
)

type Server struct {
	port        int
	itemService service.ItemService
	db          database.Service
	log         zerolog.Logger
}

// NewServer builds the http.Server for the item API. The listen port comes
// from the PORT environment variable, defaulting to 8080.
func NewServer(itemService service.ItemService, dbService database.Service, log zerolog.Logger) *http.Server {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Warn().Str("port", portStr).Err(err).Msg("invalid PORT environment variable, using default 8080")
		port = 8080
	}

	appServer := &Server{
		port:        port,
		itemService: itemService,
		db:          dbService,
		log:         log.With().Str("component", "server").Logger(),
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
