package result

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/orneryd/sicsearch/pkg/math/vector"
)

// FileStore writes results as text files under Dir:
//
//	<Dir>/<ddd>_<seed>_<idx>_fiducial.txt
//	<Dir>/loss/<ddd>_<seed>_<idx>_loss.csv
//	<Dir>/<ddd>_data.txt
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) stem(r *Result) string {
	return fmt.Sprintf("%s_%d_%d", ZeroPad3(r.Dimension), r.Seed, r.Index)
}

// VectorPath is where SaveVector writes r.
func (s *FileStore) VectorPath(r *Result) string {
	return filepath.Join(s.Dir, s.stem(r)+"_fiducial.txt")
}

// TrajectoryPath is where SaveTrajectory writes r.
func (s *FileStore) TrajectoryPath(r *Result) string {
	return filepath.Join(s.Dir, "loss", s.stem(r)+"_loss.csv")
}

// SummaryPath is where SaveSummary writes the report for dim.
func (s *FileStore) SummaryPath(dim int) string {
	return filepath.Join(s.Dir, ZeroPad3(dim)+"_data.txt")
}

// Save writes the vector and, when present, its loss trajectory.
func (s *FileStore) Save(_ context.Context, r *Result) error {
	if err := s.SaveVector(r); err != nil {
		return err
	}
	if len(r.Trajectory) > 0 {
		return s.SaveTrajectory(r)
	}
	return nil
}

// SaveVector writes one "<re>±<im>i" line per component.
func (s *FileStore) SaveVector(r *Result) error {
	return writeFile(s.VectorPath(r), r.Vector.String())
}

// SaveTrajectory writes "<step>, <loss>" rows.
func (s *FileStore) SaveTrajectory(r *Result) error {
	var sb strings.Builder
	for _, p := range r.Trajectory {
		fmt.Fprintf(&sb, "%d, %.8g\n", p.Step, p.Loss)
	}
	return writeFile(s.TrajectoryPath(r), sb.String())
}

// SaveSummary writes the run report for sum.Dimension.
func (s *FileStore) SaveSummary(sum Summary) error {
	seedUsed := "none"
	outcome := "No solution found"
	if sum.Found {
		seedUsed = strconv.FormatUint(sum.SeedUsed, 10)
		outcome = "Solution found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Initial seed:\n%d\n\n", sum.InitialSeed)
	fmt.Fprintf(&sb, "Max number of seeds tested:\n%d\n\n", sum.SeedBudget)
	fmt.Fprintf(&sb, "Seeds attempted:\n%d\n\n", sum.SeedsAttempted)
	fmt.Fprintf(&sb, "Seed used:\n%s\n\n", seedUsed)
	fmt.Fprintf(&sb, "Number of threads:\n%d\n\n", sum.Workers)
	fmt.Fprintf(&sb, "Duration (ms):\n%d\n\n", sum.Duration.Milliseconds())
	fmt.Fprintf(&sb, "Result:\n%s", outcome)
	return writeFile(s.SummaryPath(sum.Dimension), sb.String())
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ParseVector reads a vector in the SaveVector format. Blank lines are skipped.
func ParseVector(r io.Reader) (*vector.Vector, error) {
	var values []complex128
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		c, err := strconv.ParseComplex(text, 128)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid component %q: %w", line, text, err)
		}
		values = append(values, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no vector components found")
	}
	return vector.FromComplex(values...), nil
}

// LoadVector reads a vector file written by SaveVector.
func LoadVector(path string) (*vector.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := ParseVector(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
