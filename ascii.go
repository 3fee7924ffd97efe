package pcache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	asciiMagic     = "pcache"
	asciiFormat    = "format ascii 1.0"
	asciiEndHeader = "end_header"
)

var metaTypeNames = map[MetaType]string{
	META_TYPE_STRING: "string",
	META_TYPE_INT:    "int",
	META_TYPE_FLOAT:  "float",
	META_TYPE_BOOL:   "bool",
}

// FileMarshalASCII writes f as text:
//
//	pcache
//	format ascii 1.0
//	meta "key" type value
//	properties N
//	property name type count
//	end_header
//
// followed by one line per element, property by property.
func FileMarshalASCII(wt io.Writer, f *File) error {
	if err := f.validate(); err != nil {
		return err
	}
	for _, p := range f.properties {
		if strings.ContainsAny(p.Name, " \t\r\n") {
			return fmt.Errorf("%w: property %q cannot be written as text", ErrConfiguration, p.Name)
		}
	}
	bw := bufio.NewWriter(wt)
	fmt.Fprintln(bw, asciiMagic)
	fmt.Fprintln(bw, asciiFormat)
	if f.Metadata != nil {
		for _, key := range f.Metadata.Keys() {
			v := (*f.Metadata)[key]
			fmt.Fprintf(bw, "meta %s %s %s\n", strconv.Quote(key), metaTypeNames[v.Type], formatMetaValue(v))
		}
	}
	fmt.Fprintf(bw, "properties %d\n", len(f.properties))
	for _, p := range f.properties {
		fmt.Fprintf(bw, "property %s %s %d\n", p.Name, p.Type, p.Count())
	}
	fmt.Fprintln(bw, asciiEndHeader)

	for _, p := range f.properties {
		w := p.Type.Width()
		for i := 0; i < p.Count(); i++ {
			for j := 0; j < w; j++ {
				if j > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(strconv.FormatFloat(float64(p.Values[i*w+j]), 'g', -1, 32))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func formatMetaValue(v MetaValue) string {
	switch v.Type {
	case META_TYPE_STRING:
		return strconv.Quote(v.Value.(string))
	case META_TYPE_INT:
		return strconv.FormatInt(v.Value.(int64), 10)
	case META_TYPE_FLOAT:
		return strconv.FormatFloat(v.Value.(float64), 'g', -1, 64)
	case META_TYPE_BOOL:
		return strconv.FormatBool(v.Value.(bool))
	}
	return ""
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func (r *lineReader) next(what string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", fmt.Errorf("read %s failed: %w", what, err)
		}
		return "", fmt.Errorf("%w: truncated %s", ErrCorruptCache, what)
	}
	r.line++
	return strings.TrimSpace(r.sc.Text()), nil
}

func (r *lineReader) fail(format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrCorruptCache, r.line, fmt.Sprintf(format, args...))
}

// FileUnMarshalASCII parses the text layout written by FileMarshalASCII.
func FileUnMarshalASCII(rd io.Reader) (*File, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	r := &lineReader{sc: sc}

	line, err := r.next("magic")
	if err != nil {
		return nil, err
	}
	if line != asciiMagic {
		return nil, r.fail("bad magic %q", line)
	}
	if line, err = r.next("format"); err != nil {
		return nil, err
	}
	if line != asciiFormat {
		return nil, r.fail("unsupported format %q", line)
	}

	f := NewFile()
	var headers []propertyHeader
	declared := -1
	for {
		if line, err = r.next("header"); err != nil {
			return nil, err
		}
		if line == asciiEndHeader {
			break
		}
		keyword, rest, _ := strings.Cut(line, " ")
		switch keyword {
		case "meta":
			if err := parseMetaLine(r, f.Metadata, rest); err != nil {
				return nil, err
			}
		case "properties":
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 || n > maxProperties {
				return nil, r.fail("bad property count %q", rest)
			}
			declared = n
		case "property":
			fields := strings.Fields(rest)
			if len(fields) != 3 {
				return nil, r.fail("malformed property %q", rest)
			}
			tag, ok := parsePropertyType(fields[1])
			if !ok {
				return nil, r.fail("unknown type tag %q", fields[1])
			}
			count, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, r.fail("bad element count %q", fields[2])
			}
			h, err := checkHeader(fields[0], uint8(tag), count)
			if err != nil {
				return nil, err
			}
			headers = append(headers, h)
		default:
			return nil, r.fail("unexpected header line %q", line)
		}
	}
	if declared < 0 || declared != len(headers) {
		return nil, r.fail("declared %d properties, found %d", declared, len(headers))
	}
	if err := declareHeaders(f, headers); err != nil {
		return nil, err
	}

	for _, h := range headers {
		w := h.typ.Width()
		values := make([]float32, 0, min(h.count*w, valueChunk))
		for i := 0; i < h.count; i++ {
			if line, err = r.next(fmt.Sprintf("values of %q", h.name)); err != nil {
				return nil, err
			}
			fields := strings.Fields(line)
			if len(fields) != w {
				return nil, r.fail("%q expects %d components, got %d", h.name, w, len(fields))
			}
			for _, s := range fields {
				v, err := strconv.ParseFloat(s, 32)
				if err != nil {
					return nil, r.fail("bad value %q", s)
				}
				values = append(values, float32(v))
			}
		}
		if err := f.SetData(h.name, values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
	}
	return f, nil
}

func parseMetaLine(r *lineReader, md *Metadata, rest string) error {
	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return r.fail("bad metadata key in %q", rest)
	}
	key, _ := strconv.Unquote(quoted)
	typ, raw, ok := strings.Cut(strings.TrimSpace(rest[len(quoted):]), " ")
	if !ok {
		return r.fail("metadata %q has no value", key)
	}
	switch typ {
	case "string":
		s, err := strconv.Unquote(raw)
		if err != nil {
			return r.fail("bad string metadata %q", raw)
		}
		md.SetString(key, s)
	case "int":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return r.fail("bad int metadata %q", raw)
		}
		md.SetInt(key, v)
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return r.fail("bad float metadata %q", raw)
		}
		md.SetFloat(key, v)
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return r.fail("bad bool metadata %q", raw)
		}
		md.SetBool(key, v)
	default:
		return r.fail("unknown metadata type %q", typ)
	}
	return nil
}
