package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/internal/relay"
	"github.com/omochice/framed-chat/internal/server"
	"github.com/omochice/framed-chat/internal/transport/ws"
)

const defaultPort = 8080

func main() {
	// Parse command-line flags
	wsAddr := flag.String("ws", "", "Also accept WebSocket clients on this address (e.g., :8081)")
	wsPath := flag.String("ws-path", ws.DefaultPath, "HTTP path upgraded to WebSocket")
	natsURL := flag.String("nats", "", "Relay messages through the NATS server at this URL")
	natsSubject := flag.String("nats-subject", relay.DefaultSubject, "NATS subject used by the relay")
	history := flag.Int("history", chat.DefaultHistorySize, "Number of recent messages replayed to new clients")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [port]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	port := defaultPort
	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil || p < 0 || p > 65535 {
			log.Fatalf("Invalid port %q", flag.Arg(0))
		}
		port = p
	}

	opts := []server.Option{server.WithHistorySize(*history)}
	if *wsAddr != "" {
		opts = append(opts, server.WithWebSocket(*wsAddr, *wsPath))
	}
	if *natsURL != "" {
		r, err := relay.Dial(*natsURL, *natsSubject)
		if err != nil {
			log.Fatalf("Exception: %v", err)
		}
		log.Printf("Relaying messages through %s on %q", *natsURL, r.Subject())
		opts = append(opts, server.WithRelay(r))
	}

	srv, err := server.New(net.JoinHostPort("", strconv.Itoa(port)), opts...)
	if err != nil {
		log.Fatalf("Exception: %v", err)
	}

	log.Printf("Chat Server starting on port %d...", port)
	if err := srv.Listen(); err != nil {
		log.Fatalf("Exception: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, server.ErrServerStopped) {
			srv.Stop()
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		srv.Stop()
	}

	log.Println("Chat server stopped")
}
