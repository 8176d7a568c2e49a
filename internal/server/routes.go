package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crudlab/itemstore/internal/service"
)

// envelope is the uniform response wrapper used by every item operation.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.welcomeHandler)
	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/items", func(r chi.Router) {
		r.Post("/", s.createItemHandler)
		r.Get("/", s.getAllItemsHandler)
		r.Get("/{id}", s.getItemByIDHandler)
		r.Put("/{id}", s.updateItemHandler)
		r.Delete("/{id}", s.deleteItemHandler)
	})

	return r
}

func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the Item Store API",
		"endpoints": map[string]string{
			"GET /api/items":         "Get all items",
			"GET /api/items/{id}":    "Get item by ID",
			"POST /api/items":        "Create new item",
			"PUT /api/items/{id}":    "Update item by ID",
			"DELETE /api/items/{id}": "Delete item by ID",
		},
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) createItemHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxError):
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset))
		case errors.Is(err, io.ErrUnexpectedEOF):
			respondError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)",
					unmarshalTypeError.Field, unmarshalTypeError.Offset))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, "Request body must not be empty")
		default:
			s.log.Error().Err(err).Msg("error decoding create item request")
			respondServerError(w, "Error processing request")
		}
		return
	}

	item, err := s.itemService.CreateItem(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			respondError(w, http.StatusBadRequest, service.ValidationMessage(err))
			return
		}
		s.log.Error().Err(err).Msg("create item failed")
		respondServerError(w, "Failed to create item")
		return
	}

	respondWithJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Item created successfully",
		Data:    item,
	})
}

func (s *Server) getAllItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.itemService.GetAllItems(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list items failed")
		respondServerError(w, "Failed to retrieve items")
		return
	}

	count := len(items)
	respondWithJSON(w, http.StatusOK, envelope{
		Success: true,
		Count:   &count,
		Data:    items,
	})
}

func (s *Server) getItemByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.itemService.GetItemByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Item not found")
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("get item failed")
		respondServerError(w, "Failed to retrieve item")
		return
	}

	respondWithJSON(w, http.StatusOK, envelope{Success: true, Data: item})
}

func (s *Server) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.UpdateItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.itemService.UpdateItem(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(w, http.StatusNotFound, "Item not found")
		case errors.Is(err, service.ErrValidation):
			respondError(w, http.StatusBadRequest, service.ValidationMessage(err))
		default:
			s.log.Error().Err(err).Str("id", id).Msg("update item failed")
			respondServerError(w, "Failed to update item")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Item updated successfully",
		Data:    item,
	})
}

func (s *Server) deleteItemHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.itemService.DeleteItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Item not found")
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("delete item failed")
		respondServerError(w, "Failed to delete item")
		return
	}

	respondWithJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Item deleted successfully",
		Data:    item,
	})
}

// respondError reports a client-correctable failure (validation, not found)
// with a specific message.
func respondError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, envelope{Success: false, Message: message})
}

// respondServerError reports a storage or internal failure generically; the
// short error string never carries internal details.
func respondServerError(w http.ResponseWriter, short string) {
	respondWithJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Server error",
		Error:   short,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Server error","error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
