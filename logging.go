package atomix

import (
	"go.uber.org/zap"
)

// newContextLogger builds the SugaredLogger a Context logs through. Level is
// the only tunable exposed at this layer; richer sink configuration is the
// owning process's concern (cmd/kvnode wires its own zap.Config).
func newContextLogger(level *zap.AtomicLevel) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if level != nil {
		cfg.Level = *level
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panicking a library caller.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// logFields prefixes every log line emitted by the Context or a role with
// the replica's identity: node_id, term, role, followed by the caller's
// own key/value pairs.
func logFields(ctx *Context, kvs ...interface{}) []interface{} {
	base := []interface{}{"node_id", string(ctx.id), "term", ctx.term, "role", ctx.role.kind().String()}
	return append(base, kvs...)
}
