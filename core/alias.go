// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package core

import "fmt"

// MaxAliasNameBytes bounds a short UTF-8 alias name scoped under a
// ContextId (spec §3: "aliases are short UTF-8 names (<= 50 bytes)").
const MaxAliasNameBytes = 50

// AliasKind distinguishes what kind of Id an alias resolves to.
type AliasKind byte

const (
	AliasKindEntity AliasKind = iota
	AliasKindPrincipal
	AliasKindApplication
)

// AliasKey is the canonical 83-byte on-disk key for an alias: a 1-byte
// kind tag, a 32-byte scope (the owning ContextId), and a 50-byte
// null-padded name (spec §6 "persisted state layout").
type AliasKey struct {
	Kind  AliasKind
	Scope ContextId
	Name  string
}

// Encode renders the alias key into its canonical 83-byte form.
func (a AliasKey) Encode() ([]byte, error) {
	if len(a.Name) > MaxAliasNameBytes {
		return nil, fmt.Errorf("alias name %q exceeds %d bytes", a.Name, MaxAliasNameBytes)
	}
	buf := make([]byte, 0, 1+32+MaxAliasNameBytes)
	buf = append(buf, byte(a.Kind))
	buf = append(buf, a.Scope[:]...)
	name := make([]byte, MaxAliasNameBytes)
	copy(name, a.Name)
	buf = append(buf, name...)
	return buf, nil
}

// DecodeAliasKey parses the canonical 83-byte alias key form.
func DecodeAliasKey(b []byte) (AliasKey, error) {
	if len(b) != 1+32+MaxAliasNameBytes {
		return AliasKey{}, fmt.Errorf("alias key must be %d bytes, got %d", 1+32+MaxAliasNameBytes, len(b))
	}
	var scope ContextId
	copy(scope[:], b[1:33])
	nameBytes := b[33:]
	end := len(nameBytes)
	for end > 0 && nameBytes[end-1] == 0 {
		end--
	}
	return AliasKey{
		Kind:  AliasKind(b[0]),
		Scope: scope,
		Name:  string(nameBytes[:end]),
	}, nil
}
