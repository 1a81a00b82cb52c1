package result

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/minimizer"
)

func createTestResult() *Result {
	return &Result{
		RunID:     "run-1",
		Dimension: 2,
		Seed:      227,
		Index:     13,
		Loss:      3e-16,
		Steps:     1200,
		Vector:    vector.FromComplex(complex(0.8880738339771153, 0), complex(0.3250575836718682, 0.3250575836718682)),
		Trajectory: []minimizer.TrajectoryPoint{
			{Step: 0, Loss: 0.0123456789},
			{Step: 100, Loss: 1.5e-9},
			{Step: 200, Loss: 3e-16},
		},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestZeroPad3(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "000"},
		{2, "002"},
		{9, "009"},
		{10, "010"},
		{31, "031"},
		{100, "100"},
		{972, "972"},
		{999, "999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ZeroPad3(tt.in))
	}

	assert.Panics(t, func() { ZeroPad3(1000) })
	assert.Panics(t, func() { ZeroPad3(-1) })
}

type recordingSink struct {
	saved []*Result
	err   error
}

func (s *recordingSink) Save(_ context.Context, r *Result) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	r := createTestResult()

	require.NoError(t, MultiSink{a, b}.Save(context.Background(), r))
	assert.Len(t, a.saved, 1)
	assert.Len(t, b.saved, 1)

	failing := &recordingSink{err: errors.New("boom")}
	c := &recordingSink{}
	err := MultiSink{failing, c}.Save(context.Background(), r)
	assert.EqualError(t, err, "boom")
	assert.Empty(t, c.saved)
}

func TestFileStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	store := NewFileStore(dir)
	r := createTestResult()

	require.NoError(t, store.Save(context.Background(), r))

	vecPath := filepath.Join(dir, "002_227_13_fiducial.txt")
	assert.Equal(t, vecPath, store.VectorPath(r))
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	assert.Equal(t, "0.8880738339771153+0i\n0.3250575836718682+0.3250575836718682i\n", string(data))

	lossPath := filepath.Join(dir, "loss", "002_227_13_loss.csv")
	data, err = os.ReadFile(lossPath)
	require.NoError(t, err)
	assert.Equal(t, "0, 0.012345679\n100, 1.5e-09\n200, 3e-16\n", string(data))
}

func TestFileStoreSkipsEmptyTrajectory(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	r := createTestResult()
	r.Trajectory = nil

	require.NoError(t, store.Save(context.Background(), r))
	_, err := os.Stat(filepath.Join(dir, "loss"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreSaveSummary(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.SaveSummary(Summary{
		Dimension:      42,
		InitialSeed:    227,
		SeedBudget:     100,
		SeedsAttempted: 3,
		Found:          true,
		SeedUsed:       229,
		Workers:        17,
		Duration:       1500 * time.Millisecond,
	}))

	data, err := os.ReadFile(filepath.Join(dir, "042_data.txt"))
	require.NoError(t, err)
	want := "Initial seed:\n227\n\n" +
		"Max number of seeds tested:\n100\n\n" +
		"Seeds attempted:\n3\n\n" +
		"Seed used:\n229\n\n" +
		"Number of threads:\n17\n\n" +
		"Duration (ms):\n1500\n\n" +
		"Result:\nSolution found"
	assert.Equal(t, want, string(data))

	require.NoError(t, store.SaveSummary(Summary{Dimension: 42, InitialSeed: 227, SeedBudget: 100, SeedsAttempted: 100, Workers: 4}))
	data, err = os.ReadFile(store.SummaryPath(42))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Seed used:\nnone")
	assert.True(t, strings.HasSuffix(string(data), "Result:\nNo solution found"))
}

func TestFileStoreFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	store := NewFileStore(filepath.Join(blocker, "output"))
	err := store.Save(context.Background(), createTestResult())
	assert.Error(t, err)
}

func TestParseVectorRoundTrip(t *testing.T) {
	v := vector.FromComplex(complex(0.5, -0.25), complex(-1e-17, 0.125), complex(3, 0))
	got, err := ParseVector(strings.NewReader(v.String()))
	require.NoError(t, err)
	assert.Equal(t, v.Complex(), got.Complex())
}

func TestParseVectorErrors(t *testing.T) {
	_, err := ParseVector(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseVector(strings.NewReader("0.5+0.1i\nnot-a-number\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadVector(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	r := createTestResult()
	require.NoError(t, store.SaveVector(r))

	v, err := LoadVector(store.VectorPath(r))
	require.NoError(t, err)
	require.Equal(t, r.Vector.Dim(), v.Dim())
	for i := 0; i < v.Dim(); i++ {
		assert.InDelta(t, real(r.Vector.At(i)), real(v.At(i)), 1e-15)
		assert.InDelta(t, imag(r.Vector.At(i)), imag(v.At(i)), 1e-15)
	}

	_, err = LoadVector(filepath.Join(dir, "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}
