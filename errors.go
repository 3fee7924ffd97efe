package pcache

import "errors"

var (
	// ErrInvalidMesh 网格为空或结构不一致
	ErrInvalidMesh = errors.New("pcache: invalid mesh")
	// ErrConfiguration 没有匹配的采样器或请求参数非法
	ErrConfiguration = errors.New("pcache: invalid configuration")
	// ErrSamplingTimeout 遮罩拒绝过多，迭代次数超出上限
	ErrSamplingTimeout = errors.New("pcache: cannot satisfy requested count within a bounded number of draws")

	ErrUnknownProperty        = errors.New("pcache: unknown property")
	ErrDuplicateProperty      = errors.New("pcache: property already declared")
	ErrPropertyType           = errors.New("pcache: property type mismatch")
	ErrPropertyDataSet        = errors.New("pcache: property data already set")
	ErrPropertyLengthMismatch = errors.New("pcache: property length mismatch")
	ErrMissingPropertyData    = errors.New("pcache: property has no data")
	ErrCorruptCache           = errors.New("pcache: corrupt cache")

	// ErrCancelled is returned when the progress sink or the context asked the
	// bake to stop. It is an early exit, not a failure.
	ErrCancelled = errors.New("pcache: bake cancelled")
)
