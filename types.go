package pcache

import "fmt"

const PCACHE_SIGNATURE string = "fwpc"
const PCACHEXT string = ".pcache"
const V1 uint32 = 1

const (
	// 采样迭代上限系数
	MAX_ITERATION_FACTOR = 1000
	// 进度回调间隔
	PROGRESS_INTERVAL = 64
)

// Distribution 采样分布策略
type Distribution int

const (
	DISTRIBUTION_SEQUENTIAL Distribution = iota
	DISTRIBUTION_RANDOM
	DISTRIBUTION_RANDOM_UNIFORM_AREA
)

var distributionNames = map[Distribution]string{
	DISTRIBUTION_SEQUENTIAL:          "sequential",
	DISTRIBUTION_RANDOM:              "random",
	DISTRIBUTION_RANDOM_UNIFORM_AREA: "random_uniform_area",
}

func (d Distribution) String() string {
	if s, ok := distributionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("distribution(%d)", int(d))
}

// ParseDistribution 解析分布名称
func ParseDistribution(s string) (Distribution, error) {
	for d, n := range distributionNames {
		if n == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown distribution %q", ErrConfiguration, s)
}

// BakeMode 采样基元
type BakeMode int

const (
	BAKE_MODE_VERTEX BakeMode = iota
	BAKE_MODE_TRIANGLE
)

var bakeModeNames = map[BakeMode]string{
	BAKE_MODE_VERTEX:   "vertex",
	BAKE_MODE_TRIANGLE: "triangle",
}

func (m BakeMode) String() string {
	if s, ok := bakeModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("bake_mode(%d)", int(m))
}

// ParseBakeMode 解析采样模式名称
func ParseBakeMode(s string) (BakeMode, error) {
	for m, n := range bakeModeNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown bake mode %q", ErrConfiguration, s)
}

// UnmaskedPolicy decides what happens to a sample without a UV channel when a
// mask is configured.
type UnmaskedPolicy int

const (
	UNMASKED_ACCEPT UnmaskedPolicy = iota
	UNMASKED_REJECT
)

// ParseUnmaskedPolicy 解析无UV采样点策略
func ParseUnmaskedPolicy(s string) (UnmaskedPolicy, error) {
	switch s {
	case "", "accept":
		return UNMASKED_ACCEPT, nil
	case "reject":
		return UNMASKED_REJECT, nil
	}
	return 0, fmt.Errorf("%w: unknown unmasked sample policy %q", ErrConfiguration, s)
}

// Format 点缓存编码格式
type Format int

const (
	FORMAT_BINARY Format = iota
	FORMAT_ASCII
)

// ParseFormat 解析编码格式
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "binary":
		return FORMAT_BINARY, nil
	case "ascii":
		return FORMAT_ASCII, nil
	}
	return 0, fmt.Errorf("%w: unknown cache format %q", ErrConfiguration, s)
}

// PropertyType 属性列类型
type PropertyType uint8

const (
	PROPERTY_TYPE_FLOAT PropertyType = iota + 1
	PROPERTY_TYPE_VECTOR2
	PROPERTY_TYPE_VECTOR3
	PROPERTY_TYPE_VECTOR4
	PROPERTY_TYPE_COLOR
)

var propertyTypeNames = map[PropertyType]string{
	PROPERTY_TYPE_FLOAT:   "float",
	PROPERTY_TYPE_VECTOR2: "vector2",
	PROPERTY_TYPE_VECTOR3: "vector3",
	PROPERTY_TYPE_VECTOR4: "vector4",
	PROPERTY_TYPE_COLOR:   "color",
}

// Width is the number of float components of one element.
func (t PropertyType) Width() int {
	switch t {
	case PROPERTY_TYPE_FLOAT:
		return 1
	case PROPERTY_TYPE_VECTOR2:
		return 2
	case PROPERTY_TYPE_VECTOR3:
		return 3
	case PROPERTY_TYPE_VECTOR4, PROPERTY_TYPE_COLOR:
		return 4
	}
	return 0
}

func (t PropertyType) Valid() bool {
	return t.Width() > 0
}

func (t PropertyType) String() string {
	if s, ok := propertyTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("property_type(%d)", uint8(t))
}

func parsePropertyType(s string) (PropertyType, bool) {
	for t, n := range propertyTypeNames {
		if n == s {
			return t, true
		}
	}
	return 0, false
}

// 标准属性列名
const (
	PROPERTY_POSITION = "position"
	PROPERTY_NORMAL   = "normal"
	PROPERTY_COLOR    = "color"
	PROPERTY_UV       = "uv"
)
