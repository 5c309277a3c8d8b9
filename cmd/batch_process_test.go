//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

func writeTestDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func okResponse(doc map[string]any) model.TransformResponse {
	return model.TransformResponse{
		OutputJSON: doc,
		ValidationReport: model.ValidationReport{
			FinalStatus:              model.StatusOK,
			ScenarioConsistencyScore: 0.92,
		},
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	err := processBatch(context.Background(), nil, t.TempDir(), 2, func(_ context.Context, _ map[string]any) (model.TransformResponse, error) {
		t.Fatal("transform should not be called for an empty batch")
		return model.TransformResponse{}, nil
	})
	require.NoError(t, err)
}

func TestProcessBatch_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	var paths []string
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		paths = append(paths, writeTestDoc(t, dir, name, `{"topicWizardData":{}}`))
	}

	var count atomic.Int64
	err := processBatch(context.Background(), paths, outDir, 2, func(_ context.Context, doc map[string]any) (model.TransformResponse, error) {
		count.Add(1)
		return okResponse(doc), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Load())

	for _, name := range []string{"a.transformed.json", "b.transformed.json", "c.transformed.json"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestProcessBatch_MalformedDocument(t *testing.T) {
	dir := t.TempDir()
	good := writeTestDoc(t, dir, "good.json", `{"topicWizardData":{}}`)
	bad := writeTestDoc(t, dir, "bad.json", `{not json`)

	var count atomic.Int64
	err := processBatch(context.Background(), []string{good, bad}, dir, 2, func(_ context.Context, doc map[string]any) (model.TransformResponse, error) {
		count.Add(1)
		return okResponse(doc), nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Equal(t, int64(1), count.Load(), "a malformed document never reaches the transform")
}

func TestProcessBatch_FailuresDoNotAbort(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		paths = append(paths, writeTestDoc(t, dir, name, `{"topicWizardData":{}}`))
	}

	var count atomic.Int64
	err := processBatch(context.Background(), paths, dir, 1, func(_ context.Context, doc map[string]any) (model.TransformResponse, error) {
		if count.Add(1) == 2 {
			return model.TransformResponse{}, eris.New("generation backend unavailable")
		}
		return okResponse(doc), nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 documents failed")
	assert.Equal(t, int64(3), count.Load(), "remaining documents still process after a failure")
}

func TestResultPath(t *testing.T) {
	got := resultPath("out", filepath.Join("in", "doc.json"))
	assert.Equal(t, filepath.Join("out", "doc.transformed.json"), got)
}
