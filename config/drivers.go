package config

// Compression selects how record streams are stored by the file and MinIO drivers.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionGzip Compression = "gzip"
)

type DriversCfg struct {
	File   *FileDriverCfg   `yaml:"file"`
	SQLite *SQLiteDriverCfg `yaml:"sqlite"`
	MinIO  *MinIODriverCfg  `yaml:"minio"`
}

type FileDriverCfg struct {
	// Dir is where one record stream file per location is stored.
	// It is created on first export.
	Dir string `yaml:"dir"`

	// Compression of stream files: "none", "zstd" or "gzip".
	Compression Compression `yaml:"compression"`
}

func (cfg *FileDriverCfg) Enabled() bool {
	return cfg != nil
}

type SQLiteDriverCfg struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// Maps renames logical locations (segment names) to table names.
	Maps map[string]string `yaml:"maps"`
}

func (cfg *SQLiteDriverCfg) Enabled() bool {
	return cfg != nil
}

type MinIODriverCfg struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Region    string `yaml:"region"`

	// Bucket must exist.
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every object name (e.g. "segments/").
	Prefix string `yaml:"prefix"`

	Compression Compression `yaml:"compression"`
}

func (cfg *MinIODriverCfg) Enabled() bool {
	return cfg != nil
}
