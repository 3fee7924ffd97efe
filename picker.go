package pcache

import (
	"fmt"
	"sort"

	"cogentcore.org/core/base/randx"
)

// Picker produces one sample per call according to a fixed distribution
// policy. Pickers never exhaust.
type Picker interface {
	Next() SampledVertex
}

// SequentialVertexPicker walks the vertices in order, wrapping around.
type SequentialVertexPicker struct {
	cache *MeshDataCache
	index int
}

func NewSequentialVertexPicker(c *MeshDataCache) *SequentialVertexPicker {
	return &SequentialVertexPicker{cache: c}
}

func (p *SequentialVertexPicker) Next() SampledVertex {
	s := p.cache.Vertex(p.index % p.cache.VertexCount())
	p.index++
	return s
}

// SequentialTrianglePicker walks the triangles in order and returns each
// triangle's centroid.
type SequentialTrianglePicker struct {
	cache *MeshDataCache
	index int
}

func NewSequentialTrianglePicker(c *MeshDataCache) *SequentialTrianglePicker {
	return &SequentialTrianglePicker{cache: c}
}

func (p *SequentialTrianglePicker) Next() SampledVertex {
	const third = float32(1.0 / 3.0)
	s := p.cache.Interpolate(p.index%p.cache.TriangleCount(), third, third, 1-2*third)
	p.index++
	return s
}

// RandomVertexPicker draws vertices uniformly.
type RandomVertexPicker struct {
	cache *MeshDataCache
	rnd   randx.Rand
}

func NewRandomVertexPicker(c *MeshDataCache, seed int64) *RandomVertexPicker {
	return &RandomVertexPicker{cache: c, rnd: randx.NewSysRand(seed)}
}

func (p *RandomVertexPicker) Next() SampledVertex {
	return p.cache.Vertex(p.rnd.Intn(p.cache.VertexCount()))
}

// RandomTrianglePicker draws a triangle uniformly, then a uniform point
// inside it. Large triangles are under-sampled relative to their area.
type RandomTrianglePicker struct {
	cache *MeshDataCache
	rnd   randx.Rand
}

func NewRandomTrianglePicker(c *MeshDataCache, seed int64) *RandomTrianglePicker {
	return &RandomTrianglePicker{cache: c, rnd: randx.NewSysRand(seed)}
}

func (p *RandomTrianglePicker) Next() SampledVertex {
	tri := p.rnd.Intn(p.cache.TriangleCount())
	return sampleTriangle(p.cache, p.rnd, tri)
}

// UniformAreaTrianglePicker draws triangles with probability proportional to
// their area, so samples are uniform over the surface. A mesh whose total
// area is zero falls back to uniform triangle choice.
type UniformAreaTrianglePicker struct {
	cache *MeshDataCache
	rnd   randx.Rand
}

func NewUniformAreaTrianglePicker(c *MeshDataCache, seed int64) *UniformAreaTrianglePicker {
	return &UniformAreaTrianglePicker{cache: c, rnd: randx.NewSysRand(seed)}
}

func (p *UniformAreaTrianglePicker) Next() SampledVertex {
	return sampleTriangle(p.cache, p.rnd, p.pickTriangle())
}

func (p *UniformAreaTrianglePicker) pickTriangle() int {
	n := p.cache.TriangleCount()
	total := p.cache.TotalArea()
	if total <= 0 {
		return p.rnd.Intn(n)
	}
	r := p.rnd.Float64() * total
	// strict comparison skips zero-area triangles sharing r as their sum
	i := sort.Search(n, func(i int) bool {
		return p.cache.CumulativeArea(i) > r
	})
	if i >= n {
		i = n - 1
	}
	return i
}

func sampleTriangle(c *MeshDataCache, rnd randx.Rand, tri int) SampledVertex {
	u, v := randomBarycentric(rnd)
	return c.Interpolate(tri, u, v, 1-u-v)
}

// randomBarycentric folds a point of the unit square into the lower triangle.
func randomBarycentric(rnd randx.Rand) (float32, float32) {
	u := rnd.Float32()
	v := rnd.Float32()
	if u+v > 1 {
		u = 1 - u
		v = 1 - v
	}
	return u, v
}

type pickerKey struct {
	dist Distribution
	mode BakeMode
}

type pickerFactory func(c *MeshDataCache, seed int64) Picker

var pickerFactories = map[pickerKey]pickerFactory{
	{DISTRIBUTION_SEQUENTIAL, BAKE_MODE_VERTEX}: func(c *MeshDataCache, _ int64) Picker {
		return NewSequentialVertexPicker(c)
	},
	{DISTRIBUTION_SEQUENTIAL, BAKE_MODE_TRIANGLE}: func(c *MeshDataCache, _ int64) Picker {
		return NewSequentialTrianglePicker(c)
	},
	{DISTRIBUTION_RANDOM, BAKE_MODE_VERTEX}: func(c *MeshDataCache, seed int64) Picker {
		return NewRandomVertexPicker(c, seed)
	},
	{DISTRIBUTION_RANDOM, BAKE_MODE_TRIANGLE}: func(c *MeshDataCache, seed int64) Picker {
		return NewRandomTrianglePicker(c, seed)
	},
	{DISTRIBUTION_RANDOM_UNIFORM_AREA, BAKE_MODE_VERTEX}: func(c *MeshDataCache, seed int64) Picker {
		return NewUniformAreaTrianglePicker(c, seed)
	},
	{DISTRIBUTION_RANDOM_UNIFORM_AREA, BAKE_MODE_TRIANGLE}: func(c *MeshDataCache, seed int64) Picker {
		return NewUniformAreaTrianglePicker(c, seed)
	},
}

// EffectiveMode is the primitive a distribution actually samples:
// uniform-area picking is always triangle based.
func EffectiveMode(dist Distribution, mode BakeMode) BakeMode {
	if dist == DISTRIBUTION_RANDOM_UNIFORM_AREA {
		return BAKE_MODE_TRIANGLE
	}
	return mode
}

// NewPicker selects the picker for (dist, mode). Unmapped combinations fail
// with ErrConfiguration.
func NewPicker(c *MeshDataCache, dist Distribution, mode BakeMode, seed int64) (Picker, error) {
	factory, ok := pickerFactories[pickerKey{dist, mode}]
	if !ok {
		return nil, fmt.Errorf("%w: no picker for distribution %s and bake mode %s", ErrConfiguration, dist, mode)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil mesh cache", ErrInvalidMesh)
	}
	if EffectiveMode(dist, mode) == BAKE_MODE_TRIANGLE && c.TriangleCount() == 0 {
		return nil, fmt.Errorf("%w: %s picking needs triangles", ErrInvalidMesh, dist)
	}
	return factory(c, seed), nil
}
