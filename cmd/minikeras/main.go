// Package main provides the minikeras CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("minikeras %s\n", version)
	case "train":
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		err := train(os.Args[2:], logger)
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			logger.Error("training failed", "err", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("minikeras - Keras-style neural networks in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  train      Train a classifier on MNIST (see train -h)")
}
