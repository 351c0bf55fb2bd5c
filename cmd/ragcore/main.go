// Package main is the ragcore command: the server and HTTP client commands for it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	callerID   string
	jsonOutput bool
	timeout    time.Duration
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "ragcore",
	Short: "Hybrid retrieval server for RAG pipelines",
	Long: `ragcore ingests documents into a vector and keyword index and answers hybrid
retrieval queries over HTTP. Every command except serve talks to a running server.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragcore version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverURL, "server", envOr("RAGCORE_SERVER", "http://localhost:8080"), "server URL (env RAGCORE_SERVER)")
	pf.StringVar(&callerID, "caller", os.Getenv("RAGCORE_CALLER_ID"), "caller ID sent for rate limiting (env RAGCORE_CALLER_ID)")
	pf.BoolVar(&jsonOutput, "json", false, "output JSON")
	pf.DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	// flags read env defaults at init, before .env is loaded
	if v := os.Getenv("RAGCORE_SERVER"); v != "" && !rootCmd.PersistentFlags().Changed("server") {
		serverURL = v
	}
	if v := os.Getenv("RAGCORE_CALLER_ID"); v != "" && callerID == "" {
		callerID = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
