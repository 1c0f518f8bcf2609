// Package logx configures tasktimer's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// The zero Logger is a safe no-op, so library types can carry one without
// forcing a logging setup on callers.
package logx
