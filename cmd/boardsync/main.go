package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/classpad/boardsync/internal/config"
	"github.com/classpad/boardsync/internal/server"
)

// set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("boardsync %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := server.Run(config.Load(), logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}
