package pcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/google/uuid"
)

// BakeRequest describes one bake.
type BakeRequest struct {
	Distribution   Distribution
	BakeMode       BakeMode
	Seed           int64
	PointCount     int
	ExportNormals  bool
	ExportColors   bool
	ExportUV       bool
	Mask           MaskEvaluator
	UnmaskedPolicy UnmaskedPolicy
	// Workers > 1 splits random distributions across goroutines.
	Workers int
	Logger  *slog.Logger
}

func (r *BakeRequest) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Bake samples mesh according to req and returns the finished point cache.
// A cancelled bake returns ErrCancelled and no file.
func Bake(ctx context.Context, mesh *Mesh, req *BakeRequest, progress ProgressFunc) (*File, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil bake request", ErrConfiguration)
	}
	if req.PointCount <= 0 {
		return nil, fmt.Errorf("%w: point count must be positive, got %d", ErrConfiguration, req.PointCount)
	}
	if _, ok := pickerFactories[pickerKey{req.Distribution, req.BakeMode}]; !ok {
		return nil, fmt.Errorf("%w: no picker for distribution %s and bake mode %s", ErrConfiguration, req.Distribution, req.BakeMode)
	}
	if mesh == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrInvalidMesh)
	}
	log := req.logger()
	mode := EffectiveMode(req.Distribution, req.BakeMode)

	src := mesh
	if req.ExportNormals && !mesh.HasNormals() && len(mesh.Triangles) > 0 {
		cp := *mesh
		cp.ComputeNormals()
		src = &cp
		log.Debug("mesh has no normals, recomputed from faces")
	}

	cache, err := NewMeshDataCache(src, mode)
	if err != nil {
		return nil, err
	}
	log.Debug("mesh data cache built",
		"vertices", cache.VertexCount(), "triangles", cache.TriangleCount(), "area", cache.TotalArea())

	samples, err := collect(ctx, cache, mode, req, progress)
	if errors.Is(err, ErrCancelled) {
		log.Info("bake cancelled", "distribution", req.Distribution, "points", req.PointCount)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	f, err := NewFileFromSamples(samples, req.ExportNormals, req.ExportColors, req.ExportUV)
	if err != nil {
		return nil, err
	}
	stampMetadata(f.Metadata, cache, mode, req)
	log.Info("bake finished", "distribution", req.Distribution, "mode", mode, "points", f.PointCount())
	return f, nil
}

func collect(ctx context.Context, cache *MeshDataCache, mode BakeMode, req *BakeRequest, progress ProgressFunc) ([]SampledVertex, error) {
	if req.Workers > 1 && req.Distribution != DISTRIBUTION_SEQUENTIAL {
		pc := &ParallelCollector{
			Cache:        cache,
			Distribution: req.Distribution,
			Mode:         mode,
			Seed:         req.Seed,
			Workers:      req.Workers,
			Mask:         req.Mask,
			Policy:       req.UnmaskedPolicy,
			Progress:     progress,
			Logger:       req.Logger,
		}
		return pc.Collect(ctx, req.PointCount)
	}
	picker, err := NewPicker(cache, req.Distribution, mode, req.Seed)
	if err != nil {
		return nil, err
	}
	col := &Collector{
		Picker:   picker,
		Mask:     req.Mask,
		Policy:   req.UnmaskedPolicy,
		Progress: progress,
		Logger:   req.Logger,
	}
	return col.Collect(ctx, req.PointCount)
}

// NewFileFromSamples builds the standard column layout: position, then the
// optional normal, color and uv columns. uv is exported as (u, v, 0, 0) of
// the first channel, zero when the sample has none.
func NewFileFromSamples(samples []SampledVertex, normals, colors, uvs bool) (*File, error) {
	f := NewFile()
	if err := f.DeclareProperty(PROPERTY_POSITION, PROPERTY_TYPE_VECTOR3); err != nil {
		return nil, err
	}
	if normals {
		if err := f.DeclareProperty(PROPERTY_NORMAL, PROPERTY_TYPE_VECTOR3); err != nil {
			return nil, err
		}
	}
	if colors {
		if err := f.DeclareProperty(PROPERTY_COLOR, PROPERTY_TYPE_COLOR); err != nil {
			return nil, err
		}
	}
	if uvs {
		if err := f.DeclareProperty(PROPERTY_UV, PROPERTY_TYPE_VECTOR4); err != nil {
			return nil, err
		}
	}

	positions := make([]vec3.T, len(samples))
	var ns []vec3.T
	var cs, ts []vec4.T
	for i := range samples {
		s := &samples[i]
		positions[i] = s.Position
		if normals {
			ns = append(ns, s.Normal)
		}
		if colors {
			cs = append(cs, s.Color)
		}
		if uvs {
			var uv vec4.T
			if s.HasUV() {
				uv[0], uv[1] = s.UVs[0][0], s.UVs[0][1]
			}
			ts = append(ts, uv)
		}
	}

	if err := f.SetVector3Data(PROPERTY_POSITION, positions); err != nil {
		return nil, err
	}
	if normals {
		if err := f.SetVector3Data(PROPERTY_NORMAL, ns); err != nil {
			return nil, err
		}
	}
	if colors {
		if err := f.SetColorData(PROPERTY_COLOR, cs); err != nil {
			return nil, err
		}
	}
	if uvs {
		if err := f.SetVector4Data(PROPERTY_UV, ts); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// BakeID derives a stable identifier from the request and the mesh shape,
// so re-running the same bake yields the same id.
func BakeID(cache *MeshDataCache, mode BakeMode, req *BakeRequest) uuid.UUID {
	key := fmt.Sprintf("%s|%s|%d|%d|%t|%t|%t|%t|%d|%d|%d|%.9g",
		req.Distribution, mode, req.Seed, req.PointCount,
		req.ExportNormals, req.ExportColors, req.ExportUV, req.Mask != nil, req.Workers,
		cache.VertexCount(), cache.TriangleCount(), cache.TotalArea())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

func stampMetadata(md *Metadata, cache *MeshDataCache, mode BakeMode, req *BakeRequest) {
	md.SetString("bake_id", BakeID(cache, mode, req).String())
	md.SetString("distribution", req.Distribution.String())
	md.SetString("bake_mode", mode.String())
	md.SetInt("seed", req.Seed)
	md.SetInt("point_count", int64(req.PointCount))
	md.SetInt("vertex_count", int64(cache.VertexCount()))
	md.SetInt("triangle_count", int64(cache.TriangleCount()))
	md.SetFloat("surface_area", cache.TotalArea())
	md.SetBool("masked", req.Mask != nil)

	bx := cache.Mesh().GetBoundbox()
	md.SetString("bounds", fmt.Sprintf("%g %g %g %g %g %g", bx[0], bx[1], bx[2], bx[3], bx[4], bx[5]))
}
