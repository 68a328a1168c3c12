package blocking

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/georef"
	"geopoints/pkg/projection"

	"github.com/rs/zerolog/log"
)

// DefaultBlockSize is the maximum number of points per block.
const DefaultBlockSize = 500

// State of a Reader.
type State int

const (
	Opened State = iota
	Reading
	Exhausted
	ClosedError
)

func (s State) String() string {
	switch s {
	case Opened:
		return "opened"
	case Reading:
		return "reading"
	case Exhausted:
		return "exhausted"
	case ClosedError:
		return "closed on error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrClosed is returned by Next after the reader was closed early.
var ErrClosed = errors.New("blocking reader is closed")

type Options struct {
	BlockSize        int
	Delimiter        string
	DefaultAttribute string
	Projector        projection.Projector
}

// Reader yields a points file as a sequence of datasets of at most BlockSize
// points. It owns the file handle and releases it exactly once, on exhaustion,
// on the first error, or on Close.
type Reader struct {
	path   string
	format codec.Format
	src    codec.BlockReader
	opts   Options

	state    State
	err      error
	released bool
	closed   bool

	block int
	read  int64
	total int64
	known bool

	ref    *georef.GeoReference
	sawRef bool
}

// Open starts a blocked read of path.
func Open(path string, opts Options) (*Reader, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	src, format, err := codec.OpenReader(path, codec.ImportOptions{
		Delimiter:        opts.Delimiter,
		DefaultAttribute: opts.DefaultAttribute,
		Projector:        opts.Projector,
		BlockSize:        int64(opts.BlockSize),
	})
	if err != nil {
		return nil, err
	}

	return newReader(path, format, src, opts), nil
}

func newReader(path string, format codec.Format, src codec.BlockReader, opts Options) *Reader {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	r := &Reader{
		path:   path,
		format: format,
		src:    src,
		opts:   opts,
		state:  Opened,
	}
	r.total, r.known = src.Total()

	ev := log.Debug().Str("path", path).Str("format", format.String()).Int("block_size", opts.BlockSize)
	if r.known {
		ev = ev.Int64("points", r.total).Int64("blocks", (r.total+int64(opts.BlockSize)-1)/int64(opts.BlockSize))
	}
	ev.Msg("opened blocked reader")

	return r
}

func (r *Reader) State() State {
	return r.state
}

// Err is the error that closed the reader, if any.
func (r *Reader) Err() error {
	return r.err
}

// Next returns the next block, or io.EOF once the file is exhausted.
func (r *Reader) Next() (*dataset.Dataset, error) {
	switch r.state {
	case Exhausted:
		if r.closed {
			return nil, ErrClosed
		}
		return nil, io.EOF
	case ClosedError:
		return nil, r.err
	}

	rec, err := r.src.Next(r.opts.BlockSize)
	if errors.Is(err, io.EOF) {
		r.release()
		r.state = Exhausted
		log.Debug().Str("path", r.path).Int("blocks", r.block).Int64("points", r.read).Msg("blocked reader exhausted")
		return nil, io.EOF
	}
	if err != nil {
		return nil, r.fail(err)
	}

	if r.format == codec.FormatText {
		if err := r.reconcile(rec.GeoReference); err != nil {
			return nil, r.fail(err)
		}
	}

	ds, err := dataset.FromRecord(rec, r.opts.DefaultAttribute)
	if err != nil {
		return nil, r.fail(err)
	}

	start := r.read
	r.read += int64(ds.Len())
	r.block++
	r.state = Reading

	ev := log.Debug().
		Str("path", r.path).
		Int("block", r.block).
		Int64("from", start).
		Int64("to", r.read)
	if r.known {
		ev = ev.Int64("total", r.total)
	}
	ev.Msg("read block")

	return ds, nil
}

// reconcile checks a text block's frame against the frames seen before it.
func (r *Reader) reconcile(ref *georef.GeoReference) error {
	if ref == nil {
		if r.sawRef {
			return geoerr.Validationf("block %d has no geo reference but earlier blocks do", r.block+1)
		}
		return nil
	}

	next := *ref
	if r.ref != nil {
		prev := *r.ref
		if err := prev.Reconcile(&next); err != nil {
			return fmt.Errorf("block %d: %w", r.block+1, err)
		}
	}

	r.ref = &next
	r.sawRef = true
	return nil
}

func (r *Reader) fail(err error) error {
	r.release()
	r.state = ClosedError
	r.err = err
	log.Debug().Err(err).Str("path", r.path).Int("block", r.block+1).Msg("blocked reader failed")
	return err
}

func (r *Reader) release() {
	if r.released {
		return
	}
	r.released = true
	if err := r.src.Close(); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("failed to close points file")
	}
}

// Close releases the file. Closing an open reader ends it; further Next calls
// return ErrClosed. Close is idempotent.
func (r *Reader) Close() error {
	if r.state == Opened || r.state == Reading {
		r.state = Exhausted
		r.closed = true
	}
	r.release()
	return nil
}

// All iterates the remaining blocks. The reader is closed when the loop ends,
// including on break or error.
func (r *Reader) All() iter.Seq2[*dataset.Dataset, error] {
	return func(yield func(*dataset.Dataset, error) bool) {
		defer r.Close()

		for {
			ds, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ds, err) || err != nil {
				return
			}
		}
	}
}
