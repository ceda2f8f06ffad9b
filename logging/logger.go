// Package logging defines the small leveled logger used across the module.
// Adapters for zap, logrus and slog live in subpackages.
package logging

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. A nil Logger in options means Nop.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}

// With returns a logger that adds base to every call. Call fields win on
// conflicting keys.
func With(l Logger, base Fields) Logger {
	if len(base) == 0 {
		return OrNop(l)
	}
	return withFields{next: OrNop(l), base: base}
}

type withFields struct {
	next Logger
	base Fields
}

func (w withFields) merge(f Fields) Fields {
	out := make(Fields, len(w.base)+len(f))
	for k, v := range w.base {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (w withFields) Debug(msg string, f Fields) { w.next.Debug(msg, w.merge(f)) }
func (w withFields) Info(msg string, f Fields)  { w.next.Info(msg, w.merge(f)) }
func (w withFields) Warn(msg string, f Fields)  { w.next.Warn(msg, w.merge(f)) }
func (w withFields) Error(msg string, f Fields) { w.next.Error(msg, w.merge(f)) }
