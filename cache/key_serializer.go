package cache

import (
	"bytes"
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer builds a cache key from a method name and arbitrary args.
// Equal inputs must produce equal keys.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// KeyOption configures the default serializer.
type KeyOption func(*keySerializer)

// WithKeyPrefix puts prefix in front of every key, typically an entity namespace.
func WithKeyPrefix(prefix string) KeyOption {
	return func(s *keySerializer) {
		s.prefix = prefix
	}
}

// WithMaxKeyLength replaces the argument part of keys longer than n with an
// xxhash digest. Zero disables hashing.
func WithMaxKeyLength(n int) KeyOption {
	return func(s *keySerializer) {
		s.maxLen = n
	}
}

type keySerializer struct {
	prefix string
	maxLen int
}

// NewDefaultKeySerializer creates a serializer without prefix that hashes keys
// over 250 bytes.
func NewDefaultKeySerializer() KeySerializer {
	return NewKeySerializer()
}

// NewKeySerializer creates a serializer configured by opts.
func NewKeySerializer(opts ...KeyOption) KeySerializer {
	s := &keySerializer{maxLen: 250}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *keySerializer) SerializeKey(method string, args ...any) string {
	head := method
	if s.prefix != "" {
		head = s.prefix + KeySeparator + method
	}
	if len(args) == 0 {
		return head
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = encodeArg(arg)
	}
	tail := strings.Join(parts, KeySeparator)

	if s.maxLen > 0 && len(head)+len(KeySeparator)+len(tail) > s.maxLen {
		tail = "h:" + strconv.FormatUint(xxhash.Sum64String(tail), 16)
	}
	return head + KeySeparator + tail
}

func encodeArg(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case decimal.Decimal:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return encodeArg(rv.Elem().Interface())
	case reflect.Func:
		// stable only within one process
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Slice, reflect.Array:
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = encodeArg(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ",") + "]"
	case reflect.Map, reflect.Struct:
		return digest(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// digest hashes composite values through msgpack after canonical has put
// them in a fixed order. The type name is hashed too so equal field values of
// different struct types do not collide.
func digest(v any) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%T", v)
	if err := msgpack.NewEncoder(&buf).Encode(canonical(reflect.ValueOf(v))); err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return "m:" + strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 16)
}

// canonical rewrites v into slices and scalars only. Maps become pair lists
// sorted by encoded key, since msgpack keeps iteration order for most map
// types. Structs become their exported fields in declaration order.
func canonical(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if rv.CanInterface() {
		if tm, ok := rv.Interface().(encoding.TextMarshaler); ok && (rv.Kind() != reflect.Pointer || !rv.IsNil()) {
			if text, err := tm.MarshalText(); err == nil {
				return string(text)
			}
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return canonical(rv.Elem())
	case reflect.Map:
		pairs := make([][2]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, [2]any{encodeArg(iter.Key().Interface()), canonical(iter.Value())})
		}
		slices.SortFunc(pairs, func(a, b [2]any) int {
			return strings.Compare(a[0].(string), b[0].(string))
		})
		return pairs
	case reflect.Struct:
		fields := make([]any, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			fields = append(fields, canonical(rv.Field(i)))
		}
		return fields
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = canonical(rv.Index(i))
		}
		return items
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s:%x", rv.Kind(), rv.Pointer())
	}
	if rv.CanInterface() {
		return rv.Interface()
	}
	return fmt.Sprint(rv)
}
