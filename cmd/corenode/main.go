// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// corenode runs one replica of the replication & anti-entropy core:
// a CRDT-backed key/value store kept convergent with its peers via
// causal delta gossip, Merkle-diff reconciliation, and snapshot
// catch-up.
package main

import (
	"context"
	"os"

	"github.com/calimero-network/core/cli"
	"github.com/calimero-network/core/config"
)

func main() {
	rootdir, err := os.UserHomeDir()
	if err != nil {
		rootdir = "."
	}

	cfg := config.Default(rootdir + "/.corenode")
	root := cli.NewRootCommand(cfg)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
