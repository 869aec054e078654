// Package config holds the command line settings of a run and turns them
// into engine options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"imagededup/engine"
	"imagededup/grouper"
	"imagededup/imagehash"
	"imagededup/index"
)

// DefaultThreshold is the default maximum Hamming distance for duplicates.
const DefaultThreshold = 10

// Config is the settings of one run.
type Config struct {
	Folder     string
	Threshold  int
	Algorithm  string
	HashSize   int
	Strategy   string
	Keep       string
	Extensions []string
	DryRun     bool
	DBPath     string
	NoCache    bool
	Workers    int
	LogPath    string
	Debug      bool
	OpenCV     bool
}

// Default returns the settings used when no flag is given.
func Default() Config {
	return Config{
		Threshold:  DefaultThreshold,
		Algorithm:  imagehash.DHash.String(),
		HashSize:   imagehash.DefaultHashSize,
		Strategy:   index.KindBanded.String(),
		Keep:       grouper.KeepNone.String(),
		Extensions: []string{".jpg"},
		DBPath:     GetDefaultDatabasePath(),
	}
}

// Codec builds the configured hash codec.
func (c Config) Codec() (imagehash.Codec, error) {
	alg, err := imagehash.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return nil, err
	}
	if alg != imagehash.DHash && c.HashSize != imagehash.DefaultHashSize {
		return nil, fmt.Errorf("--hash-size is only supported with dhash, %s is fixed at %d", alg, imagehash.DefaultHashSize)
	}
	return imagehash.New(alg, c.HashSize)
}

// Validate checks every setting and fails on the first invalid one.
func (c Config) Validate() error {
	if c.Folder == "" {
		return errors.New("no folder given")
	}
	info, err := os.Stat(c.Folder)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.Folder)
	}
	_, err = c.EngineOptions()
	return err
}

// EngineOptions translates the settings into engine options. The threshold
// is checked against the codec width.
func (c Config) EngineOptions() ([]engine.Option, error) {
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}
	if err := index.ValidateThreshold(c.Threshold, codec.Width()); err != nil {
		return nil, err
	}
	strategy, err := index.ParseStrategyKind(c.Strategy)
	if err != nil {
		return nil, err
	}
	keep, err := grouper.ParseKeepPolicy(c.Keep)
	if err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d", c.Workers)
	}
	return []engine.Option{
		engine.WithCodec(codec),
		engine.WithStrategy(strategy),
		engine.WithKeepPolicy(keep),
		engine.WithWorkers(c.Workers),
	}, nil
}

// ParseThreshold parses a threshold and checks it against width.
func ParseThreshold(s string, width int) (int, error) {
	t, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid threshold value %q", s)
	}
	if err := index.ValidateThreshold(t, width); err != nil {
		return 0, err
	}
	return t, nil
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "imagededup.db"
	}
	return filepath.Join(filepath.Dir(exePath), "imagededup.db")
}
