// Package ai parses AI command flags and launches the AI task service.
package ai

import (
	"context"
	"flag"
	"log"

	"github.com/atriumhq/atrium/internal/platform/config"
	"github.com/atriumhq/atrium/internal/platform/otel"
	server "github.com/atriumhq/atrium/internal/services/ai/app"
)

// Config holds AI command configuration.
type Config struct {
	Port int `env:"ATRIUM_AI_PORT" envDefault:"8090"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The AI gRPC server port")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the AI task service.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "atrium-ai")
	if err != nil {
		log.Printf("otel setup: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return server.Run(ctx, cfg.Port)
}
