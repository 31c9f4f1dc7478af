// chatd is the in-memory development backend: it serves the user and chat
// REST APIs plus the websocket push channel, seeded with two users so a pair
// of clients can talk to each other locally.
package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/config"
	"github.com/mskgit8695/chatapp-frontend/internal/devserver"
	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using defaults")
	}
	cfg := config.Load()

	h := devserver.New(cfg, logger,
		model.User{ID: "alice", Name: "Alice", Email: "alice@example.com"},
		model.User{ID: "bob", Name: "Bob", Email: "bob@example.com"},
	)

	go h.HandleBroadcast()

	router := h.SetupRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS", "PUT"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		MaxAge:           300,
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	logger.Info("chatd listening",
		zap.String("env", cfg.Env),
		zap.String("addr", ":"+cfg.ServerPort),
		zap.Strings("allowedOrigins", cfg.AllowedOrigins))
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
