package pcache

import (
	"fmt"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

// Property 点缓存属性列
type Property struct {
	Name string
	Type PropertyType
	// Values holds Count()*Type.Width() components, element-major.
	Values []float32
	set    bool
}

// Count is the number of elements attached to the property.
func (p *Property) Count() int {
	if !p.set {
		return 0
	}
	return len(p.Values) / p.Type.Width()
}

func (p *Property) HasData() bool {
	return p.set
}

// File is a typed, named-property columnar point cache. Properties are
// declared first, then data is attached exactly once per property. The zero
// value is an empty version 1 file.
type File struct {
	Version    uint32
	Metadata   *Metadata
	properties []*Property
	index      map[string]int
}

func NewFile() *File {
	return &File{Version: V1, Metadata: &Metadata{}, index: make(map[string]int)}
}

// DeclareProperty registers a column. Declaration order is serialization order.
func (f *File) DeclareProperty(name string, t PropertyType) error {
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrUnknownProperty)
	}
	if len(name) > maxPropertyNameLen {
		return fmt.Errorf("%w: property name of %d bytes exceeds %d", ErrConfiguration, len(name), maxPropertyNameLen)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: property %q has unknown type %d", ErrPropertyType, name, uint8(t))
	}
	if _, ok := f.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, name)
	}
	if len(f.properties) >= maxProperties {
		return fmt.Errorf("%w: more than %d properties", ErrConfiguration, maxProperties)
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	f.index[name] = len(f.properties)
	f.properties = append(f.properties, &Property{Name: name, Type: t})
	return nil
}

func (f *File) Property(name string) (*Property, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.properties[i], true
}

// Properties returns the declared properties in declaration order.
func (f *File) Properties() []*Property {
	return f.properties
}

// PointCount is the shared element count of the attached properties.
func (f *File) PointCount() int {
	for _, p := range f.properties {
		if p.set {
			return p.Count()
		}
	}
	return 0
}

// SetData attaches flat component data to a declared property.
func (f *File) SetData(name string, values []float32) error {
	p, ok := f.Property(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if p.set {
		return fmt.Errorf("%w: %q", ErrPropertyDataSet, name)
	}
	w := p.Type.Width()
	if len(values)%w != 0 {
		return fmt.Errorf("%w: %q expects multiples of %d components, got %d", ErrPropertyLengthMismatch, name, w, len(values))
	}
	count := len(values) / w
	if len(values) > maxComponents {
		return fmt.Errorf("%w: %q has %d components, limit is %d", ErrConfiguration, name, len(values), maxComponents)
	}
	for _, sib := range f.properties {
		if sib.set && sib.Count() != count {
			return fmt.Errorf("%w: %q has %d elements, %q has %d", ErrPropertyLengthMismatch, name, count, sib.Name, sib.Count())
		}
	}
	p.Values = make([]float32, len(values))
	copy(p.Values, values)
	p.set = true
	return nil
}

func (f *File) setTyped(name string, want PropertyType, values []float32) error {
	p, ok := f.Property(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if p.Type != want {
		return fmt.Errorf("%w: %q is %s, not %s", ErrPropertyType, name, p.Type, want)
	}
	return f.SetData(name, values)
}

func (f *File) SetFloatData(name string, values []float32) error {
	return f.setTyped(name, PROPERTY_TYPE_FLOAT, values)
}

func (f *File) SetVector2Data(name string, values []vec2.T) error {
	flat := make([]float32, 0, len(values)*2)
	for i := range values {
		flat = append(flat, values[i][:]...)
	}
	return f.setTyped(name, PROPERTY_TYPE_VECTOR2, flat)
}

func (f *File) SetVector3Data(name string, values []vec3.T) error {
	flat := make([]float32, 0, len(values)*3)
	for i := range values {
		flat = append(flat, values[i][:]...)
	}
	return f.setTyped(name, PROPERTY_TYPE_VECTOR3, flat)
}

func (f *File) SetVector4Data(name string, values []vec4.T) error {
	return f.setTyped(name, PROPERTY_TYPE_VECTOR4, flattenVec4(values))
}

func (f *File) SetColorData(name string, values []vec4.T) error {
	return f.setTyped(name, PROPERTY_TYPE_COLOR, flattenVec4(values))
}

func flattenVec4(values []vec4.T) []float32 {
	flat := make([]float32, 0, len(values)*4)
	for i := range values {
		flat = append(flat, values[i][:]...)
	}
	return flat
}

// Vector3Data returns a 3-component property as vectors.
func (f *File) Vector3Data(name string) ([]vec3.T, error) {
	p, ok := f.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if p.Type != PROPERTY_TYPE_VECTOR3 {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrPropertyType, name, p.Type, PROPERTY_TYPE_VECTOR3)
	}
	out := make([]vec3.T, p.Count())
	for i := range out {
		copy(out[i][:], p.Values[i*3:i*3+3])
	}
	return out, nil
}

// Vector4Data returns a vector4 or color property as vectors.
func (f *File) Vector4Data(name string) ([]vec4.T, error) {
	p, ok := f.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if p.Type.Width() != 4 {
		return nil, fmt.Errorf("%w: %q is %s, not a 4-component type", ErrPropertyType, name, p.Type)
	}
	out := make([]vec4.T, p.Count())
	for i := range out {
		copy(out[i][:], p.Values[i*4:i*4+4])
	}
	return out, nil
}

// validate checks the finalized invariants before serialization.
func (f *File) version() uint32 {
	if f.Version == 0 {
		return V1
	}
	return f.Version
}

func (f *File) validate() error {
	if f.Metadata != nil {
		if err := f.Metadata.validate(); err != nil {
			return err
		}
	}
	count := -1
	for _, p := range f.properties {
		if !p.set {
			return fmt.Errorf("%w: %q", ErrMissingPropertyData, p.Name)
		}
		if count >= 0 && p.Count() != count {
			return fmt.Errorf("%w: %q has %d elements, expected %d", ErrPropertyLengthMismatch, p.Name, p.Count(), count)
		}
		count = p.Count()
	}
	return nil
}
