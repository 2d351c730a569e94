package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/range-sharding/chunkr/catalog"
	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/config"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/splitter"
)

var (
	cfgPath string
	apply   bool
)

var rootCmd = &cobra.Command{
	Use:  "chunkr-splitter `namespace` --config `path-to-config`",
	Args: cobra.ExactArgs(1),
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  false,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadSplitterCfg(cfgPath); err != nil {
			return err
		}
		cfg := config.SplitterConfig()
		if err := chunklog.UpdateZeroLogLevel(cfg.LogLevel); err != nil {
			return err
		}
		if apply {
			cfg.ApplySplits = true
		}

		ctx, cancelCtx := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancelCtx()

		cat, err := catalog.NewCatalog(ctx, cfg.CatalogType, cfg.CatalogAddr, cfg.CatalogBackupPath)
		if err != nil {
			return fmt.Errorf("error while connecting to catalog: %s", err)
		}

		clients := make(map[string]datanode.Client, len(cfg.Nodes))
		pools := make([]*datanode.PGClient, 0, len(cfg.Nodes))
		for _, node := range cfg.Nodes {
			cl, err := datanode.NewPGClient(ctx, node.ID, node.ConnString)
			if err != nil {
				return fmt.Errorf("error while connecting to storage node %s: %s", node.ID, err)
			}
			clients[node.ID] = cl
			pools = append(pools, cl)
		}
		defer func() {
			for _, cl := range pools {
				cl.Close()
			}
		}()
		registry := datanode.NewRegistry(clients)

		pipeline, err := splitter.NewPipeline(cfg, cat, registry)
		if err != nil {
			return err
		}

		report, err := pipeline.Run(ctx, args[0], cfg.ApplySplits)
		if err != nil {
			return err
		}

		printReport(report, cfg.ApplySplits)
		return nil
	},
}

func printReport(report *splitter.Report, applied bool) {
	fmt.Printf("namespace:        %s\n", report.Namespace)
	fmt.Printf("chunks total:     %d\n", report.TotalChunks)
	fmt.Printf("chunks sampled:   %d\n", report.SampledChunks)
	fmt.Printf("over threshold:   %d\n", report.Candidates)
	fmt.Printf("splittable:       %d\n", report.Splittable)
	if !applied {
		fmt.Println("dry run: pass --apply to issue splits")
		return
	}
	fmt.Printf("splits applied:   %d\n", report.SplitsApplied)
	fmt.Printf("splits failed:    %d\n", report.SplitsFailed)
	fmt.Printf("chunk count:      %d -> %d\n", report.ChunksBefore, report.ChunksAfter)
	for _, f := range report.Failures {
		fmt.Printf("  %s stage failed for chunk %s: %s\n", f.Stage, f.ChunkID, f.Err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/chunkr/splitter.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&apply, "apply", false, "issue split commands instead of only reporting")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		chunklog.Zero.Error().Err(err).Msg("splitter run failed")
		os.Exit(1)
	}
}

func main() {
	Execute()
}
