package pcache

import (
	"fmt"
	"io"
	"sort"
)

type MetaType int

const (
	META_TYPE_STRING MetaType = iota
	META_TYPE_INT
	META_TYPE_FLOAT
	META_TYPE_BOOL
)

// 头部元数据上限
const (
	maxMetaEntries   = 1000
	maxMetaKeyLen    = 100
	maxMetaStringLen = 100000
)

type MetaValue struct {
	Type  MetaType
	Value interface{}
}

// Metadata 点缓存文件级键值元数据
type Metadata map[string]MetaValue

func (m Metadata) SetString(key, v string) {
	m[key] = MetaValue{Type: META_TYPE_STRING, Value: v}
}

func (m Metadata) SetInt(key string, v int64) {
	m[key] = MetaValue{Type: META_TYPE_INT, Value: v}
}

func (m Metadata) SetFloat(key string, v float64) {
	m[key] = MetaValue{Type: META_TYPE_FLOAT, Value: v}
}

func (m Metadata) SetBool(key string, v bool) {
	m[key] = MetaValue{Type: META_TYPE_BOOL, Value: v}
}

func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.Type != META_TYPE_STRING {
		return "", false
	}
	return v.Value.(string), true
}

func (m Metadata) Int(key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v.Type != META_TYPE_INT {
		return 0, false
	}
	return v.Value.(int64), true
}

func (m Metadata) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v.Type != META_TYPE_FLOAT {
		return 0, false
	}
	return v.Value.(float64), true
}

func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok || v.Type != META_TYPE_BOOL {
		return false, false
	}
	return v.Value.(bool), true
}

// Keys returns the keys in sorted order, which is also the on-disk order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validate 检查元数据是否在读取端的上限内
func (m Metadata) validate() error {
	if len(m) > maxMetaEntries {
		return fmt.Errorf("%w: %d metadata entries, limit is %d", ErrConfiguration, len(m), maxMetaEntries)
	}
	for key, v := range m {
		if len(key) > maxMetaKeyLen {
			return fmt.Errorf("%w: metadata key of %d bytes exceeds %d", ErrConfiguration, len(key), maxMetaKeyLen)
		}
		if _, ok := metaTypeNames[v.Type]; !ok {
			return fmt.Errorf("%w: metadata %q has unknown type %d", ErrConfiguration, key, v.Type)
		}
		if s, ok := v.Value.(string); ok && len(s) > maxMetaStringLen {
			return fmt.Errorf("%w: metadata %q holds %d bytes, limit is %d", ErrConfiguration, key, len(s), maxMetaStringLen)
		}
	}
	return nil
}

// MetadataMarshal 序列化Metadata
func MetadataMarshal(wt io.Writer, md *Metadata) error {
	if md == nil {
		if err := writeLittleUint32(wt, 0); err != nil {
			return fmt.Errorf("write nil marker failed: %w", err)
		}
		return nil
	}
	if err := md.validate(); err != nil {
		return err
	}

	if err := writeLittleUint32(wt, uint32(len(*md))); err != nil {
		return fmt.Errorf("write metadata count failed: %w", err)
	}

	for _, key := range md.Keys() {
		value := (*md)[key]
		if err := writeLittleString(wt, key); err != nil {
			return fmt.Errorf("write key failed: %w", err)
		}
		if err := writeLittleUint32(wt, uint32(value.Type)); err != nil {
			return fmt.Errorf("write value type failed: %w", err)
		}
		if err := marshalMetaValue(wt, value); err != nil {
			return fmt.Errorf("write value of %q failed: %w", key, err)
		}
	}
	return nil
}

func marshalMetaValue(wt io.Writer, value MetaValue) error {
	switch value.Type {
	case META_TYPE_STRING:
		return writeLittleString(wt, value.Value.(string))
	case META_TYPE_INT:
		return writeLittleInt64(wt, value.Value.(int64))
	case META_TYPE_FLOAT:
		return writeLittleFloat64(wt, value.Value.(float64))
	case META_TYPE_BOOL:
		val := uint8(0)
		if value.Value.(bool) {
			val = 1
		}
		return writeLittleUint8(wt, val)
	}
	return fmt.Errorf("unknown metadata type %d", value.Type)
}

// MetadataUnMarshal 反序列化Metadata
func MetadataUnMarshal(rd io.Reader) (*Metadata, error) {
	var size uint32
	if err := readLittleByte(rd, &size); err != nil {
		return nil, corrupt("metadata count", err)
	}
	if size > maxMetaEntries {
		return nil, fmt.Errorf("%w: %d metadata entries", ErrCorruptCache, size)
	}

	md := make(Metadata, size)
	for i := uint32(0); i < size; i++ {
		key, err := readLittleString(rd, maxMetaKeyLen)
		if err != nil {
			return nil, err
		}
		var metaType uint32
		if err := readLittleByte(rd, &metaType); err != nil {
			return nil, corrupt("metadata type", err)
		}
		value, err := unmarshalMetaValue(rd, MetaType(metaType))
		if err != nil {
			return nil, err
		}
		md[key] = value
	}
	return &md, nil
}

func unmarshalMetaValue(rd io.Reader, t MetaType) (MetaValue, error) {
	switch t {
	case META_TYPE_STRING:
		s, err := readLittleString(rd, maxMetaStringLen)
		if err != nil {
			return MetaValue{}, err
		}
		return MetaValue{Type: t, Value: s}, nil
	case META_TYPE_INT:
		var v int64
		if err := readLittleByte(rd, &v); err != nil {
			return MetaValue{}, corrupt("metadata int", err)
		}
		return MetaValue{Type: t, Value: v}, nil
	case META_TYPE_FLOAT:
		var v float64
		if err := readLittleByte(rd, &v); err != nil {
			return MetaValue{}, corrupt("metadata float", err)
		}
		return MetaValue{Type: t, Value: v}, nil
	case META_TYPE_BOOL:
		var v uint8
		if err := readLittleByte(rd, &v); err != nil {
			return MetaValue{}, corrupt("metadata bool", err)
		}
		return MetaValue{Type: t, Value: v == 1}, nil
	}
	return MetaValue{}, fmt.Errorf("%w: unknown metadata type %d", ErrCorruptCache, t)
}
