// Command ubj converts between JSON and UBJSON on the command line. It is a
// thin collaborator around the ubjson package's four public entry points,
// not part of the core codec.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/oy3o/ubjson"
)

// maxInputBytes bounds how much a single conversion will read from stdin or
// a file, so a hostile or truncated-but-enormous input can't exhaust memory
// before the codec ever gets a chance to report TRUNCATED or LENGTH_EXCEEDED.
const maxInputBytes = 256 << 20

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		printUsage()
		return 2
	}

	mode := args[0]
	if mode != "fromjson" && mode != "tojson" {
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", mode)
		printUsage()
		return 2
	}

	in, closeIn, err := openInput(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer closeIn()
	in = ubjson.LimitReader(in, maxInputBytes)

	out, closeOut, err := openOutput(args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer closeOut()

	if mode == "fromjson" {
		if err := fromJSON(in, out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	if err := toJSON(in, out); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: ubj fromjson|tojson INFILE|- [OUTFILE]\n")
	fmt.Fprintf(os.Stderr, "\nexit codes:\n")
	fmt.Fprintf(os.Stderr, "  0  success\n")
	fmt.Fprintf(os.Stderr, "  1  decode/encode error (offset reported on stderr when known)\n")
	fmt.Fprintf(os.Stderr, "  2  usage error\n")
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, f.Close, nil
}

func openOutput(rest []string) (io.Writer, func() error, error) {
	if len(rest) == 0 || rest[0] == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(rest[0])
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", rest[0], err)
	}
	return f, f.Close, nil
}

func fromJSON(r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	val, err := decodeJSONValue(dec)
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return ubjson.EncodeToStream(w, val, ubjson.DefaultEncodeConfig())
}

func toJSON(r io.Reader, w io.Writer) error {
	val, err := ubjson.DecodeFromStream(r, ubjson.DefaultDecodeConfig())
	if err != nil {
		if df, ok := err.(*ubjson.DecoderFailure); ok {
			return fmt.Errorf("%s at offset %d", df.Kind, df.Offset)
		}
		return err
	}
	var buf bytes.Buffer
	if err := encodeJSONValue(&buf, val); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// decodeJSONValue reads one JSON value from dec using token streaming, which
// preserves object member order (encoding/json's map-based Unmarshal does
// not).
func decodeJSONValue(dec *json.Decoder) (ubjson.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return ubjson.Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			items := []ubjson.Value{}
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return ubjson.Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return ubjson.Value{}, err
			}
			return ubjson.Array(items), nil
		case '{':
			pairs := []ubjson.Pair{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return ubjson.Value{}, err
				}
				key, _ := keyTok.(string)
				v, err := decodeJSONValue(dec)
				if err != nil {
					return ubjson.Value{}, err
				}
				pairs = append(pairs, ubjson.Pair{Key: key, Val: v})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return ubjson.Value{}, err
			}
			return ubjson.Object(pairs), nil
		}
	case nil:
		return ubjson.Null(), nil
	case bool:
		return ubjson.Bool(t), nil
	case string:
		return ubjson.String(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return ubjson.Int(iv), nil
		}
		if ubjson.LooksLikeInteger(string(t)) {
			if v, err := ubjson.HugeIntFromString(string(t)); err == nil {
				return v, nil
			}
		}
		fv, err := t.Float64()
		if err != nil {
			return ubjson.Value{}, fmt.Errorf("invalid JSON number %q: %w", string(t), err)
		}
		return ubjson.Float(fv), nil
	}
	return ubjson.Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// encodeJSONValue hand-serialises a Value to JSON text preserving object key
// order, which encoding/json.Marshal cannot do for a Go map.
func encodeJSONValue(buf *bytes.Buffer, v ubjson.Value) error {
	switch v.Kind() {
	case ubjson.KindNull, ubjson.KindNoOp:
		buf.WriteString("null")
	case ubjson.KindBool:
		b, _ := v.AsBool()
		if b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case ubjson.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case ubjson.KindHugeInt:
		s, _ := v.AsHugeInt()
		buf.WriteString(s)
	case ubjson.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) { // NaN/Inf have no JSON representation
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case ubjson.KindHighPrec:
		s, _ := v.AsHighPrec()
		buf.WriteString(s)
	case ubjson.KindChar:
		c, _ := v.AsChar()
		b, err := json.Marshal(string(rune(c)))
		if err != nil {
			return err
		}
		buf.Write(b)
	case ubjson.KindString:
		s, _ := v.AsString()
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case ubjson.KindBytes:
		raw, _ := v.AsBytes()
		b, err := json.Marshal(base64.StdEncoding.EncodeToString(raw))
		if err != nil {
			return err
		}
		buf.Write(b)
	case ubjson.KindArray:
		items, _ := v.AsArray()
		buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSONValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ubjson.KindObject:
		pairs, _ := v.AsObject()
		buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeJSONValue(buf, p.Val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unrecognised value kind %v", v.Kind())
	}
	return nil
}
