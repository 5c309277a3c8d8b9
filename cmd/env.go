package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// transformEnv bundles the dependencies a transforming command needs. Built
// once per invocation by initTransformEnv.
type transformEnv struct {
	ctrl   *pipeline.Controller
	policy *config.TransformPolicy
	gen    anthropic.Client
}

// initStore opens the run-history store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	return st, nil
}

// initTransformEnv validates generation settings, loads the transform
// policy, and wires the pipeline controller.
func initTransformEnv(st store.Store) (*transformEnv, error) {
	if err := cfg.Validate("transform"); err != nil {
		return nil, err
	}

	policy, err := config.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		return nil, err
	}

	gen := anthropic.NewClient(anthropic.Options{
		APIKey:            cfg.Anthropic.Key,
		Model:             cfg.Anthropic.Model,
		MaxTokens:         int64(cfg.Anthropic.MaxTokens),
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		Timeout:           time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
	})

	return &transformEnv{
		ctrl:   pipeline.New(cfg, policy, gen, st),
		policy: policy,
		gen:    gen,
	}, nil
}

// readDocument loads a JSON document from disk.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read document %s", path)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "parse document %s", path)
	}

	return doc, nil
}

// writeJSONOutput writes v as indented JSON to path, or stdout when path is
// empty.
func writeJSONOutput(path string, v any) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output %s", path)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}

	return nil
}
