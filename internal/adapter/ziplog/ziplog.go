// Package ziplog is the production ports.Logger implementation: a thin
// wrapper over *zap.Logger, matching the core-defines/infra-implements
// pattern used by the other adapters in this directory.
package ziplog

import "go.uber.org/zap"

// Adapter wraps a *zap.Logger so the core depends on ports.Logger instead
// of the concrete zap type.
type Adapter struct {
	z *zap.Logger
}

func New(z *zap.Logger) *Adapter {
	return &Adapter{z: z}
}

func (a *Adapter) Debug(msg string, fields ...zap.Field) { a.z.Debug(msg, fields...) }
func (a *Adapter) Info(msg string, fields ...zap.Field)  { a.z.Info(msg, fields...) }
func (a *Adapter) Warn(msg string, fields ...zap.Field)  { a.z.Warn(msg, fields...) }
func (a *Adapter) Error(msg string, fields ...zap.Field) { a.z.Error(msg, fields...) }
