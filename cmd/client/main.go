package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/omochice/framed-chat/internal/client"
	"github.com/omochice/framed-chat/internal/transport/ws"
)

func main() {
	// Parse command-line flags
	transport := flag.String("transport", string(client.TransportTCP), "Transport to use: tcp or ws")
	wsPath := flag.String("ws-path", ws.DefaultPath, "HTTP path of the WebSocket endpoint")
	timeout := flag.Duration("timeout", 10*time.Second, "Connect timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [host] [port]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	host, port := client.DefaultHost, client.DefaultPort
	if flag.NArg() > 0 {
		host = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		port = flag.Arg(1)
		if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
			log.Fatalf("Invalid port %q", port)
		}
	}

	console := client.NewConsole(os.Stdout)
	c := client.New(host, port,
		client.WithTransport(client.Transport(*transport)),
		client.WithWebSocketPath(*wsPath),
		client.WithOutput(console),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := c.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Exception: %v", err)
	}

	console.WriteLine("\n=== Connected to Chat Server ===")
	console.WriteLine("Type your messages and press Enter. Type 'quit' to exit.")
	console.WriteLine("=================================")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(client.NewLineSource(os.Stdin))
	}()

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, client.ErrDisconnected) {
			log.Printf("Error reading input: %v", err)
		}
	case <-c.Done():
	case sig := <-sigChan:
		log.Printf("Received signal %v, disconnecting...", sig)
	}

	c.Disconnect(time.Second)
}
