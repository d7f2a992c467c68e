package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

type ConsoleConfig struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	Timeout    time.Duration `env:"CONSOLE_TIMEOUT" envDefault:"30s"`
	RoomID     string        `env:"ROOM_ID"`
	PlayerName string        `env:"PLAYER_NAME"`
	// ASSIGNED_POINTS=fisico-fuerza:3,mente-astucia:2
	AssignedPoints map[string]int `env:"ASSIGNED_POINTS"`
	PollInterval   time.Duration  `env:"POLL_INTERVAL" envDefault:"2s"`
}

func loadConsoleConfig() (*ConsoleConfig, error) {
	cfg, err := env.ParseAs[ConsoleConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RoomID == "" {
		cfg.RoomID = "sala-" + uuid.NewString()[:8]
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = "jugador-" + uuid.NewString()[:4]
	}
	return &cfg, nil
}

func main() {
	cfg, err := loadConsoleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	api := newAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !api.testConnection(ctx) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	catalog, err := api.content(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(ctx, cfg, api, catalog),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
