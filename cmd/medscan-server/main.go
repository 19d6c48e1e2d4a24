// @title medscan server API
// @version 1.0
// @description Heuristic scan analysis: upload an image, receive a structured result.
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"medscan-server-go/internal/bootstrap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to ./config.yaml when present)")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [Bootstrap] starting medscan-server %s\n", time.Now().Format("2006-01-02 15:04:05.000"), version)
	if err := bootstrap.Run(context.Background(), bootstrap.Options{
		ConfigPath: *configPath,
		Version:    version,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "medscan-server failed: %v\n", err)
		os.Exit(1)
	}
}
