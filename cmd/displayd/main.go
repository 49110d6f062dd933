package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/board"
	"clinic-call-backend/internal/display"
	"clinic-call-backend/internal/poller"
)

func main() {
	logger := log.New(os.Stdout, "displayd ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("could not read .env: %v", err)
	}

	cfg := loadConfig(logger)
	if url := os.Getenv("DISPLAY_SERVER_URL"); url != "" {
		cfg.Display.ServerURL = url
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b := board.New()
	speaker := display.NewSpeaker(cfg.Display.SpeakerCommand, cfg.Display.Lang)
	announcer := display.NewAnnouncer(b, speaker, cfg.Display.PhraseTemplate)
	defer announcer.Close()

	renderer := display.NewTerminalRenderer(os.Stdout)
	player := display.NewLogPlayer(cfg.Display.FullVolume)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Display.Screens; i++ {
		// Only the first screen plays video; the rest mirror the text.
		var p display.VideoPlayer
		if i == 0 {
			p = player
		}
		session := display.NewSession(b, renderer, p, &cfg.Display)
		logger.Printf("screen session %s started", session.ID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Run(ctx)
		}()
	}

	svc := poller.NewService(&cfg.Display, announcer, announcer)
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Run(ctx)
	}()

	logger.Println(`type "enable" to turn on voice announcements, "clear" to reset the screens`)
	go readCommands(os.Stdin, announcer, logger)

	<-ctx.Done()
	logger.Println("Shutdown signal received, stopping display...")
	wg.Wait()
	logger.Println("Display stopped")
}

// readCommands handles operator input typed at the display host.
func readCommands(r io.Reader, announcer *display.Announcer, logger *log.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "enable", "ativar":
			announcer.EnableAudio()
		case "clear", "limpar":
			announcer.Clear()
		case "":
		default:
			logger.Printf("unknown command %q", scanner.Text())
		}
	}
}

func loadConfig(logger *log.Logger) *config.Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Printf("no configuration at %s, using defaults", configPath)
		return config.Default()
	}
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	return cfg
}
