package frame

// Kind enumerates the closed set of value variants a Frame field may hold
// (§3). The set is closed but extensible by adding one more Kind plus one
// more case in the (de)serialization switch.
type Kind int

const (
	KindInt32 Kind = iota
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindTime
	KindDuration
	KindString
	KindBytes
	KindMat
	KindVectorString
	KindVectorFloat
	KindVectorDouble
	KindVectorInt
	KindVectorRect
	KindVectorLandmark
	KindVectorFeature
	KindVectorFrame
	KindDictIntFloat
	KindDictIntBool
	KindDictU64Int
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindMat:
		return "mat"
	case KindVectorString:
		return "[]string"
	case KindVectorFloat:
		return "[]float32"
	case KindVectorDouble:
		return "[]float64"
	case KindVectorInt:
		return "[]int"
	case KindVectorRect:
		return "[]rect"
	case KindVectorLandmark:
		return "[]landmark"
	case KindVectorFeature:
		return "[][]float32"
	case KindVectorFrame:
		return "[]frame"
	case KindDictIntFloat:
		return "map[int]float64"
	case KindDictIntBool:
		return "map[int]bool"
	case KindDictU64Int:
		return "map[uint64]int64"
	default:
		return "unknown"
	}
}

// Rect is a pixel-space bounding box, matching the RectInfo wire shape.
type Rect struct {
	X, Y, W, H int32
}

// Point is a simple 2D pixel coordinate, used by FaceLandmark.
type Point struct {
	X, Y int32
}

// Landmark holds the 5 (x,y) facial landmark pairs called for in §3.
type Landmark struct {
	Points [5]Point
}

// MatDepth is the pixel sample type of a Mat.
type MatDepth int

const (
	MatDepthUint8 MatDepth = iota
	MatDepthFloat32
)

// Mat is a rows x cols x channels image/tensor buffer. Data is the raw
// row-major sample buffer; its interop with codec/GPU libraries is
// isolated to operator implementations per §9's "Unsafe raw-buffer
// interop" note — Mat itself never leaks a raw pointer.
type Mat struct {
	Rows, Cols, Channels int32
	Depth                MatDepth
	Data                 []byte
}

// ByteSize returns the number of bytes Data should occupy for this
// Mat's dimensions, used by RawSizeBytes.
func (m Mat) ByteSize() int {
	sampleSize := 1
	if m.Depth == MatDepthFloat32 {
		sampleSize = 4
	}
	return int(m.Rows) * int(m.Cols) * int(m.Channels) * sampleSize
}

// value is the internal boxed representation of one Frame field.
type value struct {
	kind Kind
	raw  interface{}
}
