package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ironsheep/refcrop-mcp/internal/config"
	"github.com/ironsheep/refcrop-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var configPath string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("refcrop-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n", args[i])
			os.Exit(2)
		}
	}

	cfg, err := config.FromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr (stdout is for MCP protocol)
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Debug("starting refcrop-mcp",
		"version", Version,
		"built", BuildTime,
		"commit", GitCommit,
		"prefix", cfg.OutputPrefix)

	srv := server.New(cfg, logger)
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv, err = srv.StartMetrics(cfg.MetricsAddr)
		if err != nil {
			logger.Error("metrics unavailable", "error", err)
			os.Exit(1)
		}
	}

	if err := serve(srv, metricsSrv, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// serve runs the protocol loop and shuts the metrics listener down once it
// returns, before the caller decides the exit status.
func serve(srv *server.Server, metricsSrv *http.Server, in io.Reader, out io.Writer, logger *slog.Logger) error {
	err := srv.Serve(in, out)
	if metricsSrv != nil {
		if cerr := metricsSrv.Close(); cerr != nil {
			logger.Warn("closing metrics server", "error", cerr)
		}
	}
	return err
}

func printUsage() {
	fmt.Println("refcrop-mcp - MCP server for cropping and chroma-keying reference images")
	fmt.Println()
	fmt.Println("Usage: refcrop-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH  Read settings from a YAML file")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  REFCROP_CONFIG=PATH             YAML settings file")
	fmt.Println("  REFCROP_LOG_LEVEL=debug         Log level (debug, info, warn, error)")
	fmt.Println("  REFCROP_OUTPUT_PREFIX=CR_       Prefix reserved for cropped images")
	fmt.Println("  REFCROP_MAX_NAME_LENGTH=63      Image name limit in bytes")
	fmt.Println("  REFCROP_METRICS_ADDR=:9464      Serve Prometheus metrics on this address")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}
