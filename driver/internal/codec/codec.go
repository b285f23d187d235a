// Package codec reads and writes record streams: a sequence of YAML
// documents, one mapping per record, optionally compressed.
package codec

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Extension returns the name suffix of a stream stored with compression c.
func Extension(c config.Compression) string {
	switch c {
	case config.CompressionZstd:
		return ".yaml.zst"
	case config.CompressionGzip:
		return ".yaml.gz"
	default:
		return ".yaml"
	}
}

// NewWriter wraps w with the compressor for c. Closing the result flushes
// the compressor but does not close w.
func NewWriter(w io.Writer, c config.Compression) (io.WriteCloser, error) {
	switch c {
	case config.CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return enc, nil
	case config.CompressionGzip:
		return gzip.NewWriter(w), nil
	case config.CompressionNone, "":
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}

// NewReader wraps r with the decompressor for c.
func NewReader(r io.Reader, c config.Compression) (io.ReadCloser, error) {
	switch c {
	case config.CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case config.CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil
	case config.CompressionNone, "":
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}

// Encode writes every row as one YAML document and returns how many were written.
func Encode(ctx context.Context, w io.Writer, c config.Compression, rows iter.Seq[model.Fields]) (written int, err error) {
	cw, err := NewWriter(w, c)
	if err != nil {
		return 0, err
	}
	enc := yaml.NewEncoder(cw)
	for row := range rows {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = enc.Encode(map[string]any(row)); err != nil {
			err = fmt.Errorf("encode record #%d: %w", written, err)
			break
		}
		written++
	}
	if cerr := enc.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close yaml encoder: %w", cerr)
	}
	if cerr := cw.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close compressor: %w", cerr)
	}
	return written, err
}

// Decode lazily yields the documents of a stream. The reader is closed
// when the sequence ends or the consumer stops early.
func Decode(ctx context.Context, r io.ReadCloser, c config.Compression) iter.Seq2[model.Fields, error] {
	return func(yield func(model.Fields, error) bool) {
		defer func() { _ = r.Close() }()

		cr, err := NewReader(r, c)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() { _ = cr.Close() }()

		dec := yaml.NewDecoder(cr)
		for n := 0; ; n++ {
			if err = ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			var row map[string]any
			if err = dec.Decode(&row); err != nil {
				if err == io.EOF {
					return
				}
				yield(nil, fmt.Errorf("decode record #%d: %w", n, err))
				return
			}
			if row == nil {
				continue
			}
			if !yield(model.Fields(row), nil) {
				return
			}
		}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
