package config

import (
	"os"
	"strings"
)

// Config holds application configuration
type Config struct {
	// client-side service endpoints
	UserServiceURL string
	ChatServiceURL string
	SocketURL      string
	Token          string

	// dev backend settings
	ServerPort     string
	Env            string
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() Config {
	userURL := os.Getenv("USER_SERVICE_URL")
	if userURL == "" {
		userURL = "http://localhost:5002"
	}

	chatURL := os.Getenv("CHAT_SERVICE_URL")
	if chatURL == "" {
		chatURL = "http://localhost:5002"
	}

	socketURL := os.Getenv("SOCKET_URL")
	if socketURL == "" {
		socketURL = "ws://localhost:5002/ws"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "5002"
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	cfg := Config{
		UserServiceURL: userURL,
		ChatServiceURL: chatURL,
		SocketURL:      socketURL,
		Token:          os.Getenv("CHAT_TOKEN"),
		ServerPort:     serverPort,
		Env:            env,
		AllowedOrigins: strings.Split(allowedOrigins, ","),
	}

	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}
