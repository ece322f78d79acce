package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pixelrank/internal/bootstrap"
)

func main() {
	var overrides bootstrap.Overrides
	flag.StringVar(&overrides.ConfigPath, "config", "", "path to the yaml config file")
	flag.StringVar(&overrides.Input, "input", "", "input URL list (local path or http(s) URL)")
	flag.StringVar(&overrides.Output, "output", "", "output file path")
	flag.IntVar(&overrides.Concurrency, "concurrency", 0, "number of concurrent image workers")
	flag.BoolVar(&overrides.WebEnabled, "web", false, "serve run status over HTTP")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [BOOT] starting pixelrank...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), overrides); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "pixelrank failed: %v\n", err)
		os.Exit(1)
	}
}
