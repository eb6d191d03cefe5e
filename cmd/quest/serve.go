package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/platform/tui"
)

var (
	flagServeHost string
	flagServePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quest SSH server",
	Long: `Start an SSH server that lets users connect and play games remotely.

Each connection gets its own library screen and game session; the
installed games and play history are shared by all users.

Host key handling:
  - A key is auto-generated under server.host_key_dir on first start

Examples:
  quest serve                 # Listen on the configured address
  quest serve --port 2222     # Listen on port 2222

Users can connect with:
  ssh <host> -p 2222`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeHost, "host", "", "Listen address (overrides config)")
	serveCmd.Flags().IntVar(&flagServePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagServeHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagServePort
	}

	server, err := tui.NewSSHServer(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting quest SSH server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Connect with: ssh %s -p %d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
