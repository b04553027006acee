// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package config loads the node's runtime configuration with
// spf13/viper, the way the teacher's cli/start.go loads DefraDB's
// config.Config: defaults are set first, then overridden by a config
// file (if one exists under Rootdir), then by environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/calimero-network/core/errors"
)

// SyncConfig bounds C5's sync negotiator behavior.
type SyncConfig struct {
	// Timeout is how long a peer-pair sync attempt waits for the other
	// side before giving up (spec §7 "SyncTimeout").
	Timeout time.Duration

	// BufferCapacity bounds the C7 delta buffer (spec §4.7
	// "buffer_capacity", default 10,000).
	BufferCapacity int

	// RetryBackoffCeiling caps the exponential backoff between retries
	// after an unclean stream close (spec §4.5 "Cancellation").
	RetryBackoffCeiling time.Duration
}

// MerkleConfig holds the C6 tree parameters both sides of a sync must
// agree on (spec §4.6 "Both sides MUST use the same TreeParams").
type MerkleConfig struct {
	Fanout          uint16
	LeafTargetBytes uint32
}

// StoreConfig configures the C2 KV store layer.
type StoreConfig struct {
	// Path is the on-disk directory for the badger engine; empty means
	// in-memory (spec §4.2).
	Path string

	// MaxValueBytes is the per-entry size cap (spec §4.2 "4 MiB"
	// default).
	MaxValueBytes int
}

// Config is the node's fully-resolved runtime configuration.
type Config struct {
	Rootdir string
	Store   StoreConfig
	Sync    SyncConfig
	Merkle  MerkleConfig

	v *viper.Viper
}

const (
	defaultSyncTimeout          = 30 * time.Second
	defaultBufferCapacity       = 10_000
	defaultRetryBackoffCeiling  = 5 * time.Minute
	defaultMaxValueBytes        = 4 * 1024 * 1024
	defaultFanout               = 16
	defaultLeafTargetBytes      = 64 * 1024
	configFileBaseName          = "config"
	defaultStoreSubdirectory    = "datastore"
)

// Default returns a Config populated with this node's defaults,
// rooted at rootdir.
func Default(rootdir string) *Config {
	return &Config{
		Rootdir: rootdir,
		Store: StoreConfig{
			Path:          filepath.Join(rootdir, defaultStoreSubdirectory),
			MaxValueBytes: defaultMaxValueBytes,
		},
		Sync: SyncConfig{
			Timeout:             defaultSyncTimeout,
			BufferCapacity:      defaultBufferCapacity,
			RetryBackoffCeiling: defaultRetryBackoffCeiling,
		},
		Merkle: MerkleConfig{
			Fanout:          defaultFanout,
			LeafTargetBytes: defaultLeafTargetBytes,
		},
	}
}

// ConfigFilePath returns where this config's file would live.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.Rootdir, configFileBaseName+".yaml")
}

// ConfigFileExists reports whether a config file already exists at
// ConfigFilePath.
func (c *Config) ConfigFileExists() bool {
	_, err := os.Stat(c.ConfigFilePath())
	return err == nil
}

// LoadWithRootdir loads configuration from Rootdir, matching the
// teacher's two-phase load: defaults are always set first, then the
// config file is read whenever one exists. A missing file is an error
// only when requireExisting is true (mirroring cli/start.go's
// `cfg.LoadWithRootdir(cfg.ConfigFileExists())` pattern).
func (c *Config) LoadWithRootdir(requireExisting bool) error {
	v := viper.New()
	v.SetConfigName(configFileBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(c.Rootdir)
	v.SetEnvPrefix("CORENODE")
	v.AutomaticEnv()

	v.SetDefault("store.path", c.Store.Path)
	v.SetDefault("store.maxvaluebytes", c.Store.MaxValueBytes)
	v.SetDefault("sync.timeout", c.Sync.Timeout)
	v.SetDefault("sync.buffercapacity", c.Sync.BufferCapacity)
	v.SetDefault("sync.retrybackoffceiling", c.Sync.RetryBackoffCeiling)
	v.SetDefault("merkle.fanout", c.Merkle.Fanout)
	v.SetDefault("merkle.leaftargetbytes", c.Merkle.LeafTargetBytes)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !(notFound && !requireExisting) {
			return errors.Storage("failed to read config file", err)
		}
	}

	c.v = v
	c.Store.Path = v.GetString("store.path")
	c.Store.MaxValueBytes = v.GetInt("store.maxvaluebytes")
	c.Sync.Timeout = v.GetDuration("sync.timeout")
	c.Sync.BufferCapacity = v.GetInt("sync.buffercapacity")
	c.Sync.RetryBackoffCeiling = v.GetDuration("sync.retrybackoffceiling")
	c.Merkle.Fanout = uint16(v.GetUint32("merkle.fanout"))
	c.Merkle.LeafTargetBytes = v.GetUint32("merkle.leaftargetbytes")

	return nil
}

// FolderExists reports whether dir already exists.
func FolderExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// CreateRootDirAndConfigFile creates Rootdir (if missing) and writes
// the resolved config out to ConfigFilePath.
func (c *Config) CreateRootDirAndConfigFile() error {
	if err := os.MkdirAll(c.Rootdir, 0o755); err != nil {
		return errors.Storage("failed to create root directory", err)
	}
	return c.WriteConfigFile()
}

// WriteConfigFile persists the current config to ConfigFilePath.
func (c *Config) WriteConfigFile() error {
	if c.v == nil {
		if err := c.LoadWithRootdir(false); err != nil {
			return err
		}
	}
	if err := c.v.WriteConfigAs(c.ConfigFilePath()); err != nil {
		return errors.Storage("failed to write config file", err)
	}
	return nil
}
