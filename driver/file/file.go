// Package file stores record streams as one file per location.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/driver"
	"github.com/Borislavv/go-ash-segments/driver/internal/codec"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/rs/zerolog"
)

const bufSize = 512 * 1024

// Driver reads and writes <dir>/<location><ext> files.
type Driver struct {
	cfg    *config.FileDriverCfg
	logger zerolog.Logger
}

func New(cfg *config.FileDriverCfg, logger *zerolog.Logger) (*Driver, error) {
	if !cfg.Enabled() || cfg.Dir == "" {
		return nil, model.Configf("file driver: dir is not set")
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Driver{cfg: cfg, logger: l.With().Str("driver", "file").Logger()}, nil
}

// Path returns the file a location is stored in.
func (d *Driver) Path(location string) string {
	return filepath.Join(d.cfg.Dir, location+codec.Extension(d.cfg.Compression))
}

func (d *Driver) Fetch(ctx context.Context, location string, q driver.Query, h *schema.Handle) iter.Seq2[model.Fields, error] {
	if q.Where != "" {
		return driver.Fail(fmt.Errorf("file driver: where clause: %w", driver.ErrUnsupported))
	}
	if err := checkLocation(location); err != nil {
		return driver.Fail(err)
	}
	name := d.Path(location)

	return func(yield func(model.Fields, error) bool) {
		start := time.Now()
		f, err := os.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = model.NotFoundf("file driver: location %s", location)
			}
			yield(nil, err)
			return
		}

		read := 0
		for row, err := range codec.Decode(ctx, f, d.cfg.Compression) {
			if err != nil {
				d.logger.Error().Err(err).Str("file", name).Msg("[fetch] decode error")
				yield(nil, err)
				return
			}
			if h != nil {
				row = h.Trim(row)
			}
			if !q.Accept(row) {
				continue
			}
			read++
			if !yield(row, nil) || (q.Limit > 0 && read >= q.Limit) {
				break
			}
		}

		d.logger.Debug().
			Str("location", location).
			Int("read", read).
			Str("elapsed", time.Since(start).String()).
			Msg("fetch finished")
	}
}

// Export rewrites the location file. The stream is written to a temporary
// file first and renamed over the previous one, so readers never observe a
// partial stream.
func (d *Driver) Export(ctx context.Context, location string, records iter.Seq[*model.Record], include, exclude []string) error {
	start := time.Now()
	if err := checkLocation(location); err != nil {
		return err
	}
	if err := os.MkdirAll(d.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	name := d.Path(location)
	tmp := name + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	bw := bufio.NewWriterSize(f, bufSize)
	written, err := codec.Encode(ctx, bw, d.cfg.Compression, func(yield func(model.Fields) bool) {
		for r := range records {
			if !yield(driver.Project(r, include, exclude)) {
				return
			}
		}
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		d.logger.Error().Err(err).Str("file", name).Msg("[export] write error")
		return fmt.Errorf("export %s: %w", location, err)
	}
	if err = os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	d.logger.Info().
		Str("location", location).
		Int("written", written).
		Str("elapsed", time.Since(start).String()).
		Msg("export finished")
	return nil
}

func checkLocation(location string) error {
	if location == "" || strings.ContainsAny(location, `/\`) || location == "." || location == ".." {
		return model.Validationf("file driver: bad location %q", location)
	}
	return nil
}
