package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	avaloncmd "github.com/camlann/avalon/internal/cmd/avalon"
)

func main() {
	cfg, err := avaloncmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[AVALON] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := avaloncmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
