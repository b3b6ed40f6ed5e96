package app

import (
	"strings"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/utils"
)

type Config struct {
	Port           string
	ServiceName    string
	Environment    string
	Version        string
	AllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	origins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5174", log)
	var allowed []string
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		ServiceName:    utils.GetEnv("SERVICE_NAME", "deckforge-backend", log),
		Environment:    utils.GetEnv("ENVIRONMENT", "development", log),
		Version:        utils.GetEnv("SERVICE_VERSION", "dev", log),
		AllowedOrigins: allowed,
	}
}
