package pcache

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// 二进制头部上限
const (
	maxProperties      = 1024
	maxPropertyNameLen = 256
	maxComponents      = 1 << 28
	// 数值按块读取的元素上限
	valueChunk = 1 << 16
)

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

// writeLittleUint32 写入小端序uint32
func writeLittleUint32(wt io.Writer, v uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	_, err := wt.Write(buf)
	return err
}

func writeLittleInt32(wt io.Writer, v int32) error {
	return writeLittleUint32(wt, uint32(v))
}

// writeLittleInt64 写入小端序int64
func writeLittleInt64(wt io.Writer, v int64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	_, err := wt.Write(buf)
	return err
}

// writeLittleFloat64 写入小端序float64
func writeLittleFloat64(wt io.Writer, v float64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	_, err := wt.Write(buf)
	return err
}

func writeLittleUint8(wt io.Writer, v uint8) error {
	_, err := wt.Write([]byte{v})
	return err
}

func writeLittleString(wt io.Writer, s string) error {
	if err := writeLittleUint32(wt, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(wt, s)
	return err
}

func readLittleString(rd io.Reader, limit uint32) (string, error) {
	var n uint32
	if err := readLittleByte(rd, &n); err != nil {
		return "", corrupt("string length", err)
	}
	if n > limit {
		return "", fmt.Errorf("%w: string of %d bytes exceeds %d", ErrCorruptCache, n, limit)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return "", corrupt("string", err)
	}
	return string(buf), nil
}

// corrupt maps a short read to ErrCorruptCache and wraps other I/O errors.
func corrupt(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorruptCache, what)
	}
	return fmt.Errorf("read %s failed: %w", what, err)
}

// FileMarshal writes f in the binary layout:
//
//	signature, version, metadata,
//	property count, {name, type tag, element count}...,
//	values of each property in declaration order.
func FileMarshal(wt io.Writer, f *File) error {
	if err := f.validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(wt)
	if _, err := bw.WriteString(PCACHE_SIGNATURE); err != nil {
		return err
	}
	if err := writeLittleUint32(bw, f.version()); err != nil {
		return fmt.Errorf("write version failed: %w", err)
	}
	if err := MetadataMarshal(bw, f.Metadata); err != nil {
		return err
	}
	if err := writeLittleInt32(bw, int32(len(f.properties))); err != nil {
		return fmt.Errorf("write property count failed: %w", err)
	}
	for _, p := range f.properties {
		if err := writeLittleString(bw, p.Name); err != nil {
			return fmt.Errorf("write property name failed: %w", err)
		}
		if err := writeLittleUint8(bw, uint8(p.Type)); err != nil {
			return fmt.Errorf("write property type failed: %w", err)
		}
		if err := writeLittleInt32(bw, int32(p.Count())); err != nil {
			return fmt.Errorf("write element count failed: %w", err)
		}
	}
	for _, p := range f.properties {
		if err := binary.Write(bw, binary.LittleEndian, p.Values); err != nil {
			return fmt.Errorf("write values of %q failed: %w", p.Name, err)
		}
	}
	return bw.Flush()
}

type propertyHeader struct {
	name  string
	typ   PropertyType
	count int
}

// FileUnMarshal reads the binary layout written by FileMarshal.
func FileUnMarshal(rd io.Reader) (*File, error) {
	sig := make([]byte, len(PCACHE_SIGNATURE))
	if _, err := io.ReadFull(rd, sig); err != nil {
		return nil, corrupt("signature", err)
	}
	if string(sig) != PCACHE_SIGNATURE {
		return nil, fmt.Errorf("%w: bad signature %q", ErrCorruptCache, sig)
	}
	f := NewFile()
	if err := readLittleByte(rd, &f.Version); err != nil {
		return nil, corrupt("version", err)
	}
	if f.Version == 0 || f.Version > V1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCache, f.Version)
	}
	md, err := MetadataUnMarshal(rd)
	if err != nil {
		return nil, err
	}
	f.Metadata = md

	var n int32
	if err := readLittleByte(rd, &n); err != nil {
		return nil, corrupt("property count", err)
	}
	if n < 0 || n > maxProperties {
		return nil, fmt.Errorf("%w: property count %d", ErrCorruptCache, n)
	}
	headers := make([]propertyHeader, n)
	for i := range headers {
		name, err := readLittleString(rd, maxPropertyNameLen)
		if err != nil {
			return nil, err
		}
		var tag uint8
		if err := readLittleByte(rd, &tag); err != nil {
			return nil, corrupt("property type", err)
		}
		var count int32
		if err := readLittleByte(rd, &count); err != nil {
			return nil, corrupt("element count", err)
		}
		h, err := checkHeader(name, tag, int64(count))
		if err != nil {
			return nil, err
		}
		headers[i] = h
	}
	if err := declareHeaders(f, headers); err != nil {
		return nil, err
	}

	for _, h := range headers {
		values, err := readValues(rd, h.count*h.typ.Width())
		if err != nil {
			return nil, corrupt(fmt.Sprintf("values of %q", h.name), err)
		}
		if err := f.SetData(h.name, values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
	}
	return f, nil
}

func readValues(rd io.Reader, n int) ([]float32, error) {
	values := make([]float32, 0, min(n, valueChunk))
	chunk := make([]float32, min(n, valueChunk))
	for len(values) < n {
		c := chunk[:min(n-len(values), valueChunk)]
		if err := readLittleByte(rd, c); err != nil {
			return nil, err
		}
		values = append(values, c...)
	}
	return values, nil
}

func checkHeader(name string, tag uint8, count int64) (propertyHeader, error) {
	t := PropertyType(tag)
	if !t.Valid() {
		return propertyHeader{}, fmt.Errorf("%w: property %q has unknown type tag %d", ErrCorruptCache, name, tag)
	}
	if count < 0 || count*int64(t.Width()) > maxComponents {
		return propertyHeader{}, fmt.Errorf("%w: property %q has element count %d", ErrCorruptCache, name, count)
	}
	return propertyHeader{name: name, typ: t, count: int(count)}, nil
}

func declareHeaders(f *File, headers []propertyHeader) error {
	for _, h := range headers {
		if h.count != headers[0].count {
			return fmt.Errorf("%w: property %q has %d elements, %q has %d", ErrCorruptCache, h.name, h.count, headers[0].name, headers[0].count)
		}
		if err := f.DeclareProperty(h.name, h.typ); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
	}
	return nil
}

// Serialize writes f in the requested encoding.
func (f *File) Serialize(wt io.Writer, format Format) error {
	switch format {
	case FORMAT_BINARY:
		return FileMarshal(wt, f)
	case FORMAT_ASCII:
		return FileMarshalASCII(wt, f)
	}
	return fmt.Errorf("%w: unknown cache format %d", ErrConfiguration, format)
}

// Bytes serializes f into memory.
func (f *File) Bytes(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Serialize(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize detects the encoding from the leading bytes.
func Deserialize(rd io.Reader) (*File, error) {
	br := bufio.NewReader(rd)
	head, err := br.Peek(len(PCACHE_SIGNATURE))
	if err != nil {
		return nil, corrupt("signature", err)
	}
	if string(head) == PCACHE_SIGNATURE {
		return FileUnMarshal(br)
	}
	return FileUnMarshalASCII(br)
}

func FileReadFrom(path string) (*File, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return Deserialize(f)
}

func FileWriteTo(path string, pc *File, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	f, e := os.Create(path)
	if e != nil {
		return e
	}
	if err := pc.Serialize(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
