package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/store"
)

const storeConnectTimeout = 10 * time.Second

func main() {
	log.Println("Starting chat relay...")

	config := server.NewConfigFromEnv()

	// History replay depends on the store, so refuse to serve without it.
	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	messages, err := store.Open(ctx, config.Store)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open message store (%s): %v", config.Store.Driver, err)
	}
	log.Printf("Message store ready (%s)", config.Store.Driver)

	srv := server.New(config, messages)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				shutdownErr := srv.Shutdown(ctx)
				return errors.Join(shutdownErr, messages.Close())
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
