package result

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/sha3"

	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/minimizer"
)

// Key prefixes for catalog storage organization.
const (
	prefixFiducial = byte(0x01) // fiducial:dim:seed:idx -> record
)

// CatalogOptions configures a Catalog.
type CatalogOptions struct {
	// DataDir is the BadgerDB directory. Ignored when InMemory is set.
	DataDir string
	// InMemory keeps everything in RAM; data is lost on Close.
	InMemory bool
	// SyncWrites fsyncs each write.
	SyncWrites bool
}

// Catalog is a BadgerDB-backed index of accepted fiducials keyed by
// (dimension, seed, candidate index).
//
// Thread Safety:
//
//	Safe for concurrent use from multiple goroutines.
type Catalog struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// OpenCatalog opens or creates a catalog in dir.
func OpenCatalog(dir string) (*Catalog, error) {
	return OpenCatalogWithOptions(CatalogOptions{DataDir: dir})
}

// OpenCatalogInMemory creates a throwaway in-memory catalog.
func OpenCatalogInMemory() (*Catalog, error) {
	return OpenCatalogWithOptions(CatalogOptions{InMemory: true})
}

// OpenCatalogWithOptions opens a catalog with explicit options.
func OpenCatalogWithOptions(opts CatalogOptions) (*Catalog, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).
		WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database. Further calls fail with ErrCatalogClosed.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func (c *Catalog) ensureOpen() error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrCatalogClosed
	}
	return nil
}

func (c *Catalog) withView(fn func(txn *badger.Txn) error) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.db.View(fn)
}

func (c *Catalog) withUpdate(fn func(txn *badger.Txn) error) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.db.Update(fn)
}

// Save implements Sink.
func (c *Catalog) Save(_ context.Context, r *Result) error {
	return c.Put(r)
}

// Put stores r, replacing any record with the same key.
func (c *Catalog) Put(r *Result) error {
	rec, err := encodeRecord(r)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	key := fiducialKey(r.Dimension, r.Seed, r.Index)
	return c.withUpdate(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Get loads one record.
func (c *Catalog) Get(dim int, seed uint64, index int) (*Result, error) {
	var out *Result
	err := c.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(fiducialKey(dim, seed, index))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decodeValue(val)
			out = r
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every record for dim ordered by seed then index.
func (c *Catalog) List(dim int) ([]*Result, error) {
	var out []*Result
	prefix := dimensionPrefix(dim)
	err := c.withView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				r, err := decodeValue(val)
				if err != nil {
					return err
				}
				out = append(out, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Format: prefix + dim(2) + seed(8) + idx(4), big endian so keys sort numerically.
func fiducialKey(dim int, seed uint64, index int) []byte {
	key := make([]byte, 0, 15)
	key = append(key, dimensionPrefix(dim)...)
	key = binary.BigEndian.AppendUint64(key, seed)
	key = binary.BigEndian.AppendUint32(key, uint32(index))
	return key
}

func dimensionPrefix(dim int) []byte {
	key := make([]byte, 0, 3)
	key = append(key, prefixFiducial)
	return binary.BigEndian.AppendUint16(key, uint16(dim))
}

type record struct {
	RunID       string       `json:"run_id,omitempty"`
	Dimension   int          `json:"dimension"`
	Seed        uint64       `json:"seed"`
	Index       int          `json:"index"`
	Loss        float64      `json:"loss"`
	Steps       int          `json:"steps"`
	Vector      [][2]float64 `json:"vector"`
	Fingerprint string       `json:"fingerprint"`
	Trajectory  []byte       `json:"trajectory,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Fingerprint is the hex SHA3-256 of the vector's canonical text form.
func Fingerprint(v *vector.Vector) string {
	sum := sha3.Sum256([]byte(v.String()))
	return hex.EncodeToString(sum[:])
}

func encodeRecord(r *Result) (*record, error) {
	if r.Vector == nil {
		return nil, fmt.Errorf("result: nil vector")
	}
	rec := &record{
		RunID:       r.RunID,
		Dimension:   r.Dimension,
		Seed:        r.Seed,
		Index:       r.Index,
		Loss:        r.Loss,
		Steps:       r.Steps,
		Vector:      make([][2]float64, r.Vector.Dim()),
		Fingerprint: Fingerprint(r.Vector),
		CreatedAt:   r.CreatedAt,
	}
	for i, c := range r.Vector.Complex() {
		rec.Vector[i] = [2]float64{real(c), imag(c)}
	}
	if len(r.Trajectory) > 0 {
		compressed, err := compressTrajectory(r.Trajectory)
		if err != nil {
			return nil, err
		}
		rec.Trajectory = compressed
	}
	return rec, nil
}

func decodeValue(val []byte) (*Result, error) {
	var rec record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	values := make([]complex128, len(rec.Vector))
	for i, p := range rec.Vector {
		values[i] = complex(p[0], p[1])
	}
	v := vector.FromComplex(values...)
	if Fingerprint(v) != rec.Fingerprint {
		return nil, fmt.Errorf("%w: dimension %d seed %d index %d", ErrCorrupt, rec.Dimension, rec.Seed, rec.Index)
	}

	r := &Result{
		RunID:     rec.RunID,
		Dimension: rec.Dimension,
		Seed:      rec.Seed,
		Index:     rec.Index,
		Loss:      rec.Loss,
		Steps:     rec.Steps,
		Vector:    v,
		CreatedAt: rec.CreatedAt,
	}
	if len(rec.Trajectory) > 0 {
		traj, err := decompressTrajectory(rec.Trajectory)
		if err != nil {
			return nil, err
		}
		r.Trajectory = traj
	}
	return r, nil
}

// ZSTD encoder/decoder pools
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// The trajectory is stored as the same "<step>, <loss>" text the loss CSV
// uses, at full precision.
func compressTrajectory(points []minimizer.TrajectoryPoint) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range points {
		fmt.Fprintf(&buf, "%d, %s\n", p.Step, strconv.FormatFloat(p.Loss, 'g', -1, 64))
	}
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

func decompressTrajectory(data []byte) ([]minimizer.TrajectoryPoint, error) {
	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress trajectory: %w", err)
	}

	var points []minimizer.TrajectoryPoint
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		stepText, lossText, ok := strings.Cut(sc.Text(), ", ")
		if !ok {
			return nil, fmt.Errorf("malformed trajectory row %q", sc.Text())
		}
		step, err := strconv.Atoi(stepText)
		if err != nil {
			return nil, fmt.Errorf("malformed trajectory step: %w", err)
		}
		loss, err := strconv.ParseFloat(lossText, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed trajectory loss: %w", err)
		}
		points = append(points, minimizer.TrajectoryPoint{Step: step, Loss: loss})
	}
	return points, sc.Err()
}
