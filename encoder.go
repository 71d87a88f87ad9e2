package ubjson

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"unicode/utf8"
)

// maxHandlerChain bounds how many times a DefaultHandler may hand back a
// value that itself needs another round of classification before the
// encoder gives up with RECURSION_VIA_DEFAULT (§4.3 Error conditions). The
// spec leaves the exact bound to the implementation; 32 comfortably covers
// legitimate multi-level type adapters while catching a handler that loops.
const maxHandlerChain = 32

// EncodeConfig configures Encode/EncodeToBytes/EncodeToStream (§4.3).
type EncodeConfig struct {
	// DefaultHandler is consulted for values the encoder does not natively
	// recognise. It may return another unrecognised value (chained adapters),
	// a native Go scalar, or a Value; the encoder keeps resolving the result
	// up to maxHandlerChain times. If nil, unrecognised values fail with
	// UNSUPPORTED_TYPE.
	DefaultHandler func(v any) (any, error)

	// SortKeys writes object members in ascending key order instead of
	// insertion order. Raw map[string]any input is always emitted in sorted
	// order regardless of this flag, since Go map iteration order carries no
	// meaning to preserve.
	SortKeys bool

	// NoFloat32 suppresses binary32 narrowing; floats always encode as D.
	NoFloat32 bool

	// ContainerCount emits count-prefixed (#) arrays/objects with no closing
	// marker, instead of the default open/close-delimited form. It does not
	// add a $ type tag: elements still carry their own per-element markers.
	ContainerCount bool

	// Uint8Bytes emits Bytes as the typed $U# array (the default, and the
	// one typed container the encoder is allowed to emit per spec Non-goals).
	// When false, Bytes falls back to a plain untyped Array of narrowed Int
	// values, one per byte.
	Uint8Bytes bool

	// DisableHugeInt turns the H fallback for out-of-int64-range HugeInt
	// values into an INTEGER_OUT_OF_RANGE failure instead. (§4.3 names this
	// error condition without listing the toggle in its config table; adding
	// the toggle is documented as an Open Question resolution in DESIGN.md.)
	DisableHugeInt bool
}

// DefaultEncodeConfig returns the zero-value-safe defaults: no handler,
// insertion-order objects, float32 narrowing enabled, delimited containers,
// Bytes emitted as a typed $U# array.
func DefaultEncodeConfig() EncodeConfig {
	return EncodeConfig{Uint8Bytes: true}
}

type efKind uint8

const (
	efDispatch efKind = iota
	efArrayIter
	efObjectIter
)

type encFrame struct {
	kind efKind

	// efDispatch
	v    any
	path string

	// efArrayIter / efObjectIter
	idx, n       int
	getSeq       func(int) any
	getKey       func(int) string
	getVal       func(int) any
	noTerminator bool
	hasID        bool
	id           uintptr
}

type encoder struct {
	cfg       EncodeConfig
	sink      *Sink
	stack     []encFrame
	ancestors []uintptr
}

// Encode drives sink with a single non-recursive stack-based traversal of v
// (§4.3). v may be a ubjson.Value or any host value recognised via the
// built-in scalar rules, the Sequence/Mapping/ByteBag capability sets, or
// cfg.DefaultHandler. Non-finite floats (NaN, +Inf, -Inf) are written as Z
// (null), so they decode back as Null rather than as Float.
func Encode(sink *Sink, v any, cfg EncodeConfig) error {
	e := &encoder{cfg: cfg, sink: sink}
	e.stack = append(e.stack, encFrame{kind: efDispatch, v: v, path: "$"})

	for len(e.stack) > 0 {
		f := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		var err error
		switch f.kind {
		case efDispatch:
			err = e.step(f)
		case efArrayIter:
			err = e.stepArray(f)
		case efObjectIter:
			err = e.stepObject(f)
		}
		if err != nil {
			sink.Taint()
			return err
		}
	}
	return nil
}

func (e *encoder) push(f encFrame) { e.stack = append(e.stack, f) }

func (e *encoder) step(f encFrame) error {
	v := f.v
	depth := 0
	for {
		if val, ok := v.(Value); ok {
			return e.dispatchValue(val, f.path)
		}
		if v == nil {
			return e.writeMarkerOnly(MarkerNull)
		}
		if val, ok := classifyBuiltin(v); ok {
			return e.dispatchValue(val, f.path)
		}
		if ok, err := e.dispatchComposite(v, f.path); ok || err != nil {
			return err
		}
		if e.cfg.DefaultHandler == nil {
			return newEncoderFailure(ErrUnsupportedType, f.path, nil)
		}
		depth++
		if depth > maxHandlerChain {
			return newEncoderFailure(ErrRecursionViaDefault, f.path, nil)
		}
		nv, err := e.cfg.DefaultHandler(v)
		if err != nil {
			return newEncoderFailure(ErrUnsupportedType, f.path, err)
		}
		v = nv
	}
}

// classifyBuiltin converts common Go scalar types directly to Value.
func classifyBuiltin(v any) (Value, bool) {
	switch t := v.(type) {
	case bool:
		return Bool(t), true
	case int:
		return Int(int64(t)), true
	case int8:
		return Int(int64(t)), true
	case int16:
		return Int(int64(t)), true
	case int32:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case uint:
		return Int(int64(t)), true
	case uint8:
		return Int(int64(t)), true
	case uint16:
		return Int(int64(t)), true
	case uint32:
		return Int(int64(t)), true
	case uint64:
		return Int(int64(t)), true
	case float32:
		return Float(float64(t)), true
	case float64:
		return Float(t), true
	case string:
		return String(t), true
	case []byte:
		return Bytes(t), true
	}
	return Value{}, false
}

// dispatchComposite handles native []any / []Value / []Pair / map[string]any
// and the Sequence/Mapping/ByteBag capability sets, pushing iterator frames
// directly (composites cannot resolve to a flat Value in one step).
func (e *encoder) dispatchComposite(v any, path string) (bool, error) {
	if bb, ok := v.(ByteBag); ok {
		return true, e.dispatchValue(Bytes(bb.Bytes()), path)
	}

	if n, get, id, hasID, ok := nativeOrCapabilitySequence(v); ok {
		return true, e.pushArray(n, get, path, id, hasID)
	}
	if keys, get, id, hasID, ok := nativeOrCapabilityMapping(v, e.cfg.SortKeys); ok {
		return true, e.pushObject(keys, get, path, id, hasID)
	}
	return false, nil
}

func nativeOrCapabilitySequence(v any) (n int, get func(int) any, id uintptr, hasID bool, ok bool) {
	switch t := v.(type) {
	case []Value:
		return len(t), func(i int) any { return t[i] }, identityOf(v), hasIdentity(v), true
	case []any:
		return len(t), func(i int) any { return t[i] }, identityOf(v), hasIdentity(v), true
	case Sequence:
		return t.Len(), t.Index, identityOf(v), hasIdentity(v), true
	}
	return 0, nil, 0, false, false
}

func nativeOrCapabilityMapping(v any, sortKeys bool) (keys []string, get func(int) any, id uintptr, hasID bool, ok bool) {
	var vals []any
	switch t := v.(type) {
	case []Pair:
		keys = make([]string, len(t))
		vals = make([]any, len(t))
		for i, p := range t {
			keys[i], vals[i] = p.Key, p.Val
		}
	case map[string]any:
		keys = make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys) // map order is meaningless; always sort for determinism.
		vals = make([]any, len(keys))
		for i, k := range keys {
			vals[i] = t[k]
		}
		return keys, func(i int) any { return vals[i] }, identityOf(v), hasIdentity(v), true
	case Mapping:
		n := t.Len()
		keys = make([]string, n)
		vals = make([]any, n)
		for i := 0; i < n; i++ {
			keys[i], vals[i] = t.Pair(i)
		}
	default:
		return nil, nil, 0, false, false
	}
	if sortKeys {
		idx := make([]int, len(keys))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
		sortedKeys := make([]string, len(keys))
		sortedVals := make([]any, len(keys))
		for i, j := range idx {
			sortedKeys[i], sortedVals[i] = keys[j], vals[j]
		}
		keys, vals = sortedKeys, sortedVals
	}
	return keys, func(i int) any { return vals[i] }, identityOf(v), hasIdentity(v), true
}

func identityOf(v any) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0
		}
		return rv.Pointer()
	}
	return 0
}

func hasIdentity(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return !rv.IsNil()
	}
	return false
}

func (e *encoder) pushArray(n int, get func(int) any, path string, id uintptr, hasID bool) error {
	if hasID {
		for _, a := range e.ancestors {
			if a == id {
				return newEncoderFailure(ErrUnsupportedType, path, fmt.Errorf("cyclic value"))
			}
		}
		e.ancestors = append(e.ancestors, id)
	}
	if err := e.writeMarkerOnly(MarkerArrayOpen); err != nil {
		return err
	}
	noTerm := false
	if e.cfg.ContainerCount {
		if err := e.writeMarkerOnly(MarkerCount); err != nil {
			return err
		}
		if err := e.writeInt(int64(n)); err != nil {
			return err
		}
		noTerm = true
	}
	e.push(encFrame{kind: efArrayIter, n: n, getSeq: get, path: path, noTerminator: noTerm, id: id, hasID: hasID})
	return nil
}

func (e *encoder) pushObject(keys []string, get func(int) any, path string, id uintptr, hasID bool) error {
	if hasID {
		for _, a := range e.ancestors {
			if a == id {
				return newEncoderFailure(ErrUnsupportedType, path, fmt.Errorf("cyclic value"))
			}
		}
		e.ancestors = append(e.ancestors, id)
	}
	if err := e.writeMarkerOnly(MarkerObjOpen); err != nil {
		return err
	}
	noTerm := false
	if e.cfg.ContainerCount {
		if err := e.writeMarkerOnly(MarkerCount); err != nil {
			return err
		}
		if err := e.writeInt(int64(len(keys))); err != nil {
			return err
		}
		noTerm = true
	}
	e.push(encFrame{
		kind: efObjectIter, n: len(keys),
		getKey: func(i int) string { return keys[i] }, getVal: get,
		path: path, noTerminator: noTerm, id: id, hasID: hasID,
	})
	return nil
}

func (e *encoder) stepArray(f encFrame) error {
	if f.idx >= f.n {
		if !f.noTerminator {
			if err := e.writeMarkerOnly(MarkerArrayClose); err != nil {
				return err
			}
		}
		e.popAncestor(f)
		return nil
	}
	child := f.getSeq(f.idx)
	childPath := fmt.Sprintf("%s[%d]", f.path, f.idx)
	e.push(encFrame{kind: efArrayIter, idx: f.idx + 1, n: f.n, getSeq: f.getSeq, path: f.path, noTerminator: f.noTerminator, id: f.id, hasID: f.hasID})
	e.push(encFrame{kind: efDispatch, v: child, path: childPath})
	return nil
}

func (e *encoder) stepObject(f encFrame) error {
	if f.idx >= f.n {
		if !f.noTerminator {
			if err := e.writeMarkerOnly(MarkerObjClose); err != nil {
				return err
			}
		}
		e.popAncestor(f)
		return nil
	}
	key := f.getKey(f.idx)
	if !utf8.ValidString(key) {
		return newEncoderFailure(ErrStringNotUTF8, f.path, nil)
	}
	if err := e.writeLengthPrefixedText(key); err != nil {
		return err
	}
	child := f.getVal(f.idx)
	childPath := fmt.Sprintf("%s.%s", f.path, key)
	e.push(encFrame{kind: efObjectIter, idx: f.idx + 1, n: f.n, getKey: f.getKey, getVal: f.getVal, path: f.path, noTerminator: f.noTerminator, id: f.id, hasID: f.hasID})
	e.push(encFrame{kind: efDispatch, v: child, path: childPath})
	return nil
}

func (e *encoder) popAncestor(f encFrame) {
	if f.hasID && len(e.ancestors) > 0 {
		e.ancestors = e.ancestors[:len(e.ancestors)-1]
	}
}

// dispatchValue emits a closed Value: scalars are written immediately,
// Array/Object push iterator frames.
func (e *encoder) dispatchValue(v Value, path string) error {
	switch v.kind {
	case KindNull:
		return e.writeMarkerOnly(MarkerNull)
	case KindNoOp:
		// Non-goal: the encoder never emits No-Op.
		return newEncoderFailure(ErrUnsupportedType, path, fmt.Errorf("no-op has no encoder representation"))
	case KindBool:
		if v.b {
			return e.writeMarkerOnly(MarkerTrue)
		}
		return e.writeMarkerOnly(MarkerFalse)
	case KindInt:
		return e.writeInt(v.i)
	case KindHugeInt:
		if e.cfg.DisableHugeInt {
			return newEncoderFailure(ErrIntegerOutOfRange, path, nil)
		}
		return e.writeHighPrec(v.huge)
	case KindFloat:
		return e.writeFloat(v.f)
	case KindHighPrec:
		return e.writeHighPrec(v.hp)
	case KindChar:
		if err := e.writeMarkerOnly(MarkerChar); err != nil {
			return err
		}
		return e.sink.WriteByte(v.ch)
	case KindString:
		if !utf8.ValidString(v.str) {
			return newEncoderFailure(ErrStringNotUTF8, path, nil)
		}
		if err := e.writeMarkerOnly(MarkerString); err != nil {
			return err
		}
		return e.writeLengthPrefixedText(v.str)
	case KindBytes:
		return e.dispatchBytes(v.bytes, path)
	case KindArray:
		return e.pushArray(len(v.arr), func(i int) any { return v.arr[i] }, path, 0, false)
	case KindObject:
		keys := make([]string, len(v.obj))
		vals := make([]any, len(v.obj))
		for i, p := range v.obj {
			keys[i], vals[i] = p.Key, p.Val
		}
		if e.cfg.SortKeys {
			idx := make([]int, len(keys))
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
			sk := make([]string, len(keys))
			sv := make([]any, len(keys))
			for i, j := range idx {
				sk[i], sv[i] = keys[j], vals[j]
			}
			keys, vals = sk, sv
		}
		return e.pushObject(keys, func(i int) any { return vals[i] }, path, 0, false)
	}
	return newEncoderFailure(ErrUnsupportedType, path, nil)
}

// dispatchBytes writes a raw byte blob per §4.3: as the typed $U# array by
// default, or, when Uint8Bytes is disabled, as a plain array of narrowed Int
// values (never as a separate typed container, per Non-goals).
func (e *encoder) dispatchBytes(b []byte, path string) error {
	if e.cfg.Uint8Bytes {
		if err := e.writeMarkerOnly(MarkerArrayOpen); err != nil {
			return err
		}
		if err := e.writeMarkerOnly(MarkerType); err != nil {
			return err
		}
		if err := e.writeMarkerOnly(MarkerUint8); err != nil {
			return err
		}
		if err := e.writeMarkerOnly(MarkerCount); err != nil {
			return err
		}
		if err := e.writeInt(int64(len(b))); err != nil {
			return err
		}
		_, err := e.sink.Write(b)
		return err
	}
	items := make([]any, len(b))
	for i, c := range b {
		items[i] = int64(c)
	}
	return e.pushArray(len(items), func(i int) any { return items[i] }, path, 0, false)
}

func (e *encoder) writeMarkerOnly(m Marker) error {
	return e.sink.WriteByte(byte(m))
}

func (e *encoder) writeInt(v int64) error {
	m := ClassifyInt64(v)
	if err := e.writeMarkerOnly(m); err != nil {
		return err
	}
	switch m {
	case MarkerInt8:
		return e.sink.WriteByte(byte(int8(v)))
	case MarkerUint8:
		return e.sink.WriteByte(byte(uint8(v)))
	case MarkerInt16:
		var buf [2]byte
		Order.PutUint16(buf[:], uint16(int16(v)))
		_, err := e.sink.Write(buf[:])
		return err
	case MarkerInt32:
		var buf [4]byte
		Order.PutUint32(buf[:], uint32(int32(v)))
		_, err := e.sink.Write(buf[:])
		return err
	default: // MarkerInt64
		var buf [8]byte
		Order.PutUint64(buf[:], uint64(v))
		_, err := e.sink.Write(buf[:])
		return err
	}
}

func (e *encoder) writeFloat(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return e.writeMarkerOnly(MarkerNull)
	}
	m := ClassifyFloat(v, e.cfg.NoFloat32)
	if err := e.writeMarkerOnly(m); err != nil {
		return err
	}
	if m == MarkerFloat32 {
		var buf [4]byte
		Order.PutUint32(buf[:], math.Float32bits(float32(v)))
		_, err := e.sink.Write(buf[:])
		return err
	}
	var buf [8]byte
	Order.PutUint64(buf[:], math.Float64bits(v))
	_, err := e.sink.Write(buf[:])
	return err
}

func (e *encoder) writeHighPrec(text string) error {
	if err := e.writeMarkerOnly(MarkerHighPrec); err != nil {
		return err
	}
	return e.writeLengthPrefixedText(text)
}

func (e *encoder) writeLengthPrefixedText(s string) error {
	if err := e.writeInt(int64(len(s))); err != nil {
		return err
	}
	_, err := e.sink.WriteString(s)
	return err
}
