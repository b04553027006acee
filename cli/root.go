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
	"github.com/spf13/cobra"

	"github.com/calimero-network/core/config"
)

// NewRootCommand builds the root cobra command, wiring every
// subcommand against a shared Config the way the teacher's
// (unretrieved) root command wires its own subcommands against a
// shared *config.Config.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "corenode",
		Short: "Replication & anti-entropy node",
	}

	root.PersistentFlags().StringVar(&cfg.Rootdir, "rootdir", cfg.Rootdir, "directory for this node's config and data")

	root.AddCommand(MakeStartCommand(cfg))

	return root
}
