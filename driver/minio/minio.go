// Package minio stores record streams as objects in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"path"
	"time"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/driver"
	"github.com/Borislavv/go-ash-segments/driver/internal/codec"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Driver keeps one object per location at <prefix>/<location><ext>.
type Driver struct {
	client *minio.Client
	cfg    *config.MinIODriverCfg
	logger zerolog.Logger
}

// New connects a client from cfg.
func New(cfg *config.MinIODriverCfg, logger *zerolog.Logger) (*Driver, error) {
	if !cfg.Enabled() || cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, model.Configf("minio driver: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *minio.Client, cfg *config.MinIODriverCfg, logger *zerolog.Logger) *Driver {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Driver{client: client, cfg: cfg, logger: l.With().Str("driver", "minio").Str("bucket", cfg.Bucket).Logger()}
}

// Object returns the object name a location is stored under.
func (d *Driver) Object(location string) string {
	return path.Join(d.cfg.Prefix, location+codec.Extension(d.cfg.Compression))
}

func (d *Driver) Fetch(ctx context.Context, location string, q driver.Query, h *schema.Handle) iter.Seq2[model.Fields, error] {
	if q.Where != "" {
		return driver.Fail(fmt.Errorf("minio driver: where clause: %w", driver.ErrUnsupported))
	}
	key := d.Object(location)

	return func(yield func(model.Fields, error) bool) {
		start := time.Now()
		if _, err := d.client.StatObject(ctx, d.cfg.Bucket, key, minio.StatObjectOptions{}); err != nil {
			yield(nil, statError(location, err))
			return
		}
		obj, err := d.client.GetObject(ctx, d.cfg.Bucket, key, minio.GetObjectOptions{})
		if err != nil {
			yield(nil, fmt.Errorf("get object %s: %w", key, err))
			return
		}

		read := 0
		for row, err := range codec.Decode(ctx, obj, d.cfg.Compression) {
			if err != nil {
				d.logger.Error().Err(err).Str("object", key).Msg("[fetch] decode error")
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
			if !yield(row, nil) {
				return
			}
			if q.Limit > 0 && read >= q.Limit {
				break
			}
		}

		d.logger.Debug().
			Str("object", key).
			Int("read", read).
			Str("elapsed", time.Since(start).String()).
			Msg("fetch finished")
	}
}

// Export encodes the stream in memory and uploads it as a single object,
// so the previous object is replaced atomically.
func (d *Driver) Export(ctx context.Context, location string, records iter.Seq[*model.Record], include, exclude []string) error {
	start := time.Now()
	key := d.Object(location)

	var buf bytes.Buffer
	written, err := codec.Encode(ctx, &buf, d.cfg.Compression, func(yield func(model.Fields) bool) {
		for r := range records {
			if !yield(driver.Project(r, include, exclude)) {
				return
			}
		}
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", location, err)
	}

	_, err = d.client.PutObject(ctx, d.cfg.Bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: contentType(d.cfg.Compression),
	})
	if err != nil {
		d.logger.Error().Err(err).Str("object", key).Msg("[export] upload error")
		return fmt.Errorf("put object %s: %w", key, err)
	}

	d.logger.Info().
		Str("object", key).
		Int("written", written).
		Int("bytes", buf.Len()).
		Str("elapsed", time.Since(start).String()).
		Msg("export finished")
	return nil
}

func statError(location string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return model.NotFoundf("minio driver: location %s", location)
	}
	return fmt.Errorf("stat %s: %w", location, err)
}

func contentType(c config.Compression) string {
	switch c {
	case config.CompressionZstd:
		return "application/zstd"
	case config.CompressionGzip:
		return "application/gzip"
	default:
		return "application/yaml"
	}
}
