// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/calimero-network/core/config"
	"github.com/calimero-network/core/datastore"
	"github.com/calimero-network/core/logging"
	"github.com/calimero-network/core/syncsvc"
	"github.com/calimero-network/core/syncsvc/buffer"
)

var log = logging.MustNewLogger("cli")

// MakeStartCommand builds the "start" subcommand: load (or bootstrap)
// the rootdir's config, open the store, and run until interrupted.
func MakeStartCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a replication node",
		Long:  "Start a new instance of the replication & anti-entropy node.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.ConfigFileExists() {
				return cfg.LoadWithRootdir(true)
			}
			if err := cfg.LoadWithRootdir(false); err != nil {
				return err
			}
			if config.FolderExists(cfg.Rootdir) {
				log.Info(cmd.Context(), "configuration loaded", logging.NewKV("rootdir", cfg.Rootdir))
				return cfg.WriteConfigFile()
			}
			return cfg.CreateRootDirAndConfigFile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("store-path") {
				cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
			}
			if cmd.Flags().Changed("buffer-capacity") {
				cfg.Sync.BufferCapacity, _ = cmd.Flags().GetInt("buffer-capacity")
			}
			if cmd.Flags().Changed("merkle-fanout") {
				cfg.Merkle.Fanout, _ = cmd.Flags().GetUint16("merkle-fanout")
			}
			instance, err := start(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return wait(cmd.Context(), instance)
		},
	}

	cmd.Flags().String("store-path", cfg.Store.Path, "directory for the badger-backed datastore (empty for in-memory)")
	cmd.Flags().Int("buffer-capacity", cfg.Sync.BufferCapacity, "max deltas held in the replay buffer during an in-flight sync")
	cmd.Flags().Uint16("merkle-fanout", cfg.Merkle.Fanout, "Merkle tree fanout, must match every peer")

	return cmd
}

// instance is the set of long-lived components one running node holds.
type instance struct {
	store      *datastore.Store
	buffer     *buffer.Buffer
	negotiator *syncsvc.Negotiator
}

func (i *instance) close(ctx context.Context) {
	if err := i.store.Close(); err != nil {
		log.ErrorE(ctx, "failed to close datastore", err)
	}
}

func start(ctx context.Context, cfg *config.Config) (*instance, error) {
	log.Info(ctx, "starting node", logging.NewKV("rootdir", cfg.Rootdir))

	store, err := datastore.Open(datastore.Options{
		Path:         cfg.Store.Path,
		MaxValueSize: cfg.Store.MaxValueBytes,
	})
	if err != nil {
		return nil, err
	}

	deltaBuffer, err := buffer.New(buffer.Options{Capacity: cfg.Sync.BufferCapacity})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &instance{
		store:      store,
		buffer:     deltaBuffer,
		negotiator: syncsvc.NewNegotiator(),
	}, nil
}

// wait blocks until the context is cancelled or an interrupt signal
// arrives, then closes every long-lived component.
func wait(ctx context.Context, i *instance) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		log.Info(ctx, "context cancelled, closing node")
		i.close(ctx)
		return ctx.Err()
	case <-signalCh:
		log.Info(ctx, "interrupt received, closing node")
		i.close(ctx)
		return nil
	}
}
