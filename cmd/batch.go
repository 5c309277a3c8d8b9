package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
)

var (
	batchDir         string
	batchScenario    string
	batchOutDir      string
	batchConcurrency int
	batchLocked      []string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Transform every JSON document in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		env, err := initTransformEnv(st)
		if err != nil {
			return err
		}

		paths, err := filepath.Glob(filepath.Join(batchDir, "*.json"))
		if err != nil {
			return eris.Wrapf(err, "list documents in %s", batchDir)
		}

		// Skip results from a previous pass over the same directory.
		docs := make([]string, 0, len(paths))
		for _, p := range paths {
			if strings.HasSuffix(p, ".transformed.json") {
				continue
			}
			docs = append(docs, p)
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		outDir := batchOutDir
		if outDir == "" {
			outDir = batchDir
		}

		selector := model.ParseSelector(batchScenario)
		return processBatch(ctx, docs, outDir, concurrency, func(ctx context.Context, doc map[string]any) (model.TransformResponse, error) {
			state := env.ctrl.Run(ctx, model.TransformRequest{
				InputJSON:        doc,
				SelectedScenario: selector,
				LockedFields:     batchLocked,
			}, nil)
			resp := pipeline.Response(state)
			if resp.ValidationReport.FinalStatus != model.StatusOK {
				return resp, eris.New(failureSummary(state))
			}
			return resp, nil
		})
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchDir, "dir", "d", "", "Directory of input documents")
	batchCmd.Flags().StringVarP(&batchScenario, "scenario", "s", "", "Target scenario: option index or free text")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Directory for results (default alongside inputs)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Concurrent transformations (0 uses the configured default)")
	batchCmd.Flags().StringSliceVar(&batchLocked, "locked", nil, "Locked fields overriding the policy file")
	_ = batchCmd.MarkFlagRequired("dir")
	_ = batchCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(batchCmd)
}

// transformFunc is the callback signature for transforming one parsed document.
type transformFunc func(ctx context.Context, doc map[string]any) (model.TransformResponse, error)

// processBatch transforms the documents concurrently and writes each result
// into outDir. Individual failures do not abort the batch; the error reports
// the failure count at the end.
func processBatch(ctx context.Context, paths []string, outDir string, concurrency int, transform transformFunc) error {
	if len(paths) == 0 {
		zap.L().Info("no documents found")
		return nil
	}

	zap.L().Info("processing batch",
		zap.Int("documents", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, path := range paths {
		path := path
		g.Go(func() error {
			log := zap.L().With(zap.String("document", path))

			doc, err := readDocument(path)
			if err != nil {
				failed.Add(1)
				log.Error("transformation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			resp, err := transform(gctx, doc)
			if err != nil {
				failed.Add(1)
				log.Error("transformation failed", zap.Error(err))
				return nil
			}

			if err := writeJSONOutput(resultPath(outDir, path), resp); err != nil {
				failed.Add(1)
				log.Error("write result", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("transformation complete",
				zap.Float64("score", resp.ValidationReport.ScenarioConsistencyScore),
				zap.Int("changed_paths", len(resp.ValidationReport.ChangedPaths)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)

	if n := failed.Load(); n > 0 {
		return eris.Errorf("%d of %d documents failed", n, len(paths))
	}
	return nil
}

// resultPath maps an input document to its result file in outDir.
func resultPath(outDir, in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(outDir, base+".transformed.json")
}
