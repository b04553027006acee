// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the structured key-value logger used across
// the replication core, backed by zap with go-log-style subsystem
// naming.
package logging

import (
	"context"

	golog "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"
)

// KV is a single structured logging field.
type KV struct {
	key   string
	value any
}

// NewKV constructs a logging field from a key and value.
func NewKV(key string, value any) KV {
	return KV{key: key, value: value}
}

func (kv KV) zap() zap.Field {
	return zap.Any(kv.key, kv.value)
}

// Logger is a per-subsystem structured logger.
type Logger struct {
	name string
	sug  *zap.SugaredLogger
}

// MustNewLogger creates (or reuses) a named subsystem logger, in the
// same spirit as go-log's Logger() constructor.
func MustNewLogger(name string) *Logger {
	golog.SetupLogging(golog.Config{Level: golog.LevelInfo})
	base := golog.Logger(name).Desugar()
	return &Logger{name: name, sug: base.Sugar()}
}

func (l *Logger) with(kvs []KV) *zap.SugaredLogger {
	if len(kvs) == 0 {
		return l.sug
	}
	fields := make([]any, 0, len(kvs)*2)
	for _, kv := range kvs {
		fields = append(fields, kv.key, kv.value)
	}
	return l.sug.With(fields...)
}

// Debug logs a debug-level message with structured fields.
func (l *Logger) Debug(_ context.Context, msg string, kvs ...KV) {
	l.with(kvs).Debug(msg)
}

// Info logs an info-level message with structured fields.
func (l *Logger) Info(_ context.Context, msg string, kvs ...KV) {
	l.with(kvs).Info(msg)
}

// ErrorE logs an error-level message together with the error that
// caused it.
func (l *Logger) ErrorE(_ context.Context, msg string, err error, kvs ...KV) {
	l.with(kvs).Errorw(msg, "error", err)
}

// FatalE logs a fatal message and terminates the process, matching the
// propagation policy of spec §7: unexpected conditions terminate the
// process rather than silently corrupting replicated state.
func (l *Logger) FatalE(_ context.Context, msg string, err error, kvs ...KV) {
	l.with(kvs).Fatalw(msg, "error", err)
}
