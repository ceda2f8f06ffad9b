package logging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorded struct {
	Level  string
	Msg    string
	Fields Fields
}

type recorder struct{ entries []recorded }

func (r *recorder) add(level, msg string, f Fields) {
	r.entries = append(r.entries, recorded{Level: level, Msg: msg, Fields: f})
}

func (r *recorder) Debug(msg string, f Fields) { r.add("debug", msg, f) }
func (r *recorder) Info(msg string, f Fields)  { r.add("info", msg, f) }
func (r *recorder) Warn(msg string, f Fields)  { r.add("warn", msg, f) }
func (r *recorder) Error(msg string, f Fields) { r.add("error", msg, f) }

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Error("expected Nop for nil logger")
	}
	rec := &recorder{}
	if OrNop(rec) != Logger(rec) {
		t.Error("expected non-nil logger to pass through")
	}
}

func TestWith(t *testing.T) {
	rec := &recorder{}
	log := With(rec, Fields{"entity": "account", "op": "base"})

	log.Info("refill", Fields{"op": "list"})
	log.Error("boom", nil)

	want := []recorded{
		{Level: "info", Msg: "refill", Fields: Fields{"entity": "account", "op": "list"}},
		{Level: "error", Msg: "boom", Fields: Fields{"entity": "account", "op": "base"}},
	}
	if diff := cmp.Diff(want, rec.entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestWith_EmptyBaseReturnsLogger(t *testing.T) {
	rec := &recorder{}
	if With(rec, nil) != Logger(rec) {
		t.Error("expected logger unchanged without base fields")
	}
	if _, ok := With(nil, nil).(Nop); !ok {
		t.Error("expected Nop for nil logger")
	}
}
