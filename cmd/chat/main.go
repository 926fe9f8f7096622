package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plpchat/client/internal/client"
	"github.com/plpchat/client/internal/metrics"
	"github.com/plpchat/client/internal/notify"
	"github.com/plpchat/client/internal/transport"
	"github.com/plpchat/client/internal/ui"
)

func main() {
	relayURL := "ws://localhost:5000/ws"
	if v := os.Getenv("RELAY_URL"); v != "" {
		relayURL = v
	}

	config := transport.DefaultConfig(relayURL)
	if v := os.Getenv("RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReconnectDelay = d
		}
	}
	if v := os.Getenv("RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ReconnectAttempts = n
		}
	}

	metricsAddr := os.Getenv("METRICS_ADDR")

	username := strings.TrimSpace(os.Getenv("CHAT_USERNAME"))
	if username == "" {
		username = promptUsername()
	}

	// Log to a file so the TUI owns the terminal.
	if logPath := os.Getenv("CHAT_LOG"); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(os.Stderr)
	}

	log.Printf("PLP chat client starting")
	log.Printf("  relay_url:          %s", config.URL)
	log.Printf("  reconnect_delay:    %s", config.ReconnectDelay)
	log.Printf("  reconnect_attempts: %d", config.ReconnectAttempts)
	log.Printf("  username:           %s", username)
	if metricsAddr != "" {
		log.Printf("  metrics_addr:       %s", metricsAddr)
	}

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Printf("metrics listener error: %v", err)
			}
		}()
	}

	recent := notify.NewRecent()
	sink := notify.Multi{&notify.Bell{Out: os.Stderr}, recent}

	t := transport.New(config)
	session := client.New(t, sink)

	program := tea.NewProgram(ui.New(session), tea.WithAltScreen())
	session.OnChange(func() {
		program.Send(ui.RefreshMsg{})
	})

	// Join in the background so the shell comes up immediately; the
	// disconnected banner stays visible until the dial succeeds.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Join(ctx, username); err != nil {
			log.Printf("join failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Fatalf("ui error: %v", err)
	}

	if err := session.Close(); err != nil {
		log.Printf("session close error: %v", err)
	}
}

// promptUsername asks for a display name on stdin until a non-empty one is
// entered.
func promptUsername() string {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Choose a username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("failed to read username: %v", err)
		}
		if name := strings.TrimSpace(line); name != "" {
			return name
		}
	}
}
