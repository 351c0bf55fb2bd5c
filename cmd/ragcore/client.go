package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragcore/internal/cli"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/watcher"
	"github.com/hyperjump/ragcore/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestID    string
	ingestTitle string

	queryTopK   int
	queryAlpha  float64
	queryMinSim float64
	queryMode   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest text files",
	Long: `Reads each file and posts it to the server. Without --id the document ID is derived
from the file path, the same way watched directories are ingested.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Run a retrieval query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show query, ingest, and error metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := newClient().Metrics(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteReport(cmd.OutOrStdout(), r, outputFormat())
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show corpus counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		h, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteHealth(cmd.OutOrStdout(), h, outputFormat())
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document ID (single file only)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: file name)")

	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (server default when 0)")
	queryCmd.Flags().Float64Var(&queryAlpha, "alpha", -1, "vector weight in [0,1] (server default when unset)")
	queryCmd.Flags().Float64Var(&queryMinSim, "min-similarity", -1, "minimum fused score in [0,1] (server default when unset)")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "retrieval mode: hybrid, vector, or keyword")

	rootCmd.AddCommand(ingestCmd, queryCmd, deleteCmd, metricsCmd, healthCmd)
}

func newClient() *cli.Client {
	return cli.NewClient(serverURL, callerID, timeout)
}

func outputFormat() cli.OutputFormat {
	if jsonOutput {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestID != "" && len(args) > 1 {
		return fmt.Errorf("--id can only be used with a single file")
	}
	logger, err := utils.NewCLILogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := newClient()
	var failed int
	for _, path := range args {
		in, err := documentFromFile(path, ingestID, ingestTitle)
		if err != nil {
			logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		res, err := client.Ingest(cmd.Context(), in)
		if err != nil {
			logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		if jsonOutput {
			if err := cli.WriteJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d chunks, %dms)\n", path, res.DocumentID, res.ChunksCreated, res.ProcessingTimeMs)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// documentFromFile reads path into a DocumentInput. An empty id is derived from the path.
func documentFromFile(path, id, title string) (*models.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = watcher.DocumentID(abs)
	}
	if title == "" {
		title = filepath.Base(abs)
	}
	return &models.DocumentInput{
		ID:       id,
		Title:    title,
		Content:  string(data),
		Metadata: map[string]interface{}{"path": abs},
	}, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Query(cmd.Context(), buildQuery(args))
	if err != nil {
		return err
	}
	return cli.WriteQueryResponse(cmd.OutOrStdout(), resp, outputFormat())
}

// buildQuery joins args into the query text and sets only the flags that were given.
func buildQuery(args []string) models.QueryRequest {
	req := models.QueryRequest{
		Query: strings.Join(strings.Fields(strings.Join(args, " ")), " "),
		TopK:  queryTopK,
		Mode:  queryMode,
	}
	if queryAlpha >= 0 {
		a := queryAlpha
		req.Alpha = &a
	}
	if queryMinSim >= 0 {
		m := queryMinSim
		req.MinSimilarity = &m
	}
	return req
}
