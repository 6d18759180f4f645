// Package writers implements the JpegWriter, FrameWriter, BinaryFileWriter
// and Writer (DB) persistence operators of §4.6 and §6. The three
// file-backed writers share a common layout strategy (flat, capture-time
// subdirectories, or rotating numbered subdirectories of frames_per_dir
// frames each) and differ only in the on-disk encoding: JpegWriter writes
// the raw "original_bytes" field, FrameWriter writes the frame's JSON
// representation, and BinaryFileWriter writes a msgpack-encoded record
// using github.com/ugorji/go/codec, the same codec catshadow's disk.go
// uses for its local state file.
package writers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/ugorji/go/codec"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Layout selects how output files are organized under OutputDir.
type Layout string

const (
	LayoutFlat      Layout = "flat"
	LayoutByCapture Layout = "by_capture_time"
	LayoutRotating  Layout = "rotating"
)

// pathFor computes the directory a frame's file should live in, and
// advances rotating-layout bookkeeping.
func pathFor(layout Layout, outputDir string, f *frame.Frame, framesPerDir int, rotateCount *int, rotateDir *int) string {
	switch layout {
	case LayoutByCapture:
		t := f.CaptureTime()
		return filepath.Join(outputDir,
			fmt.Sprintf("%04d", t.Year()),
			fmt.Sprintf("%02d", t.Month()),
			fmt.Sprintf("%02d", t.Day()),
			fmt.Sprintf("%02d", t.Hour()),
			fmt.Sprintf("%02d", t.Minute()),
			fmt.Sprintf("%02d", t.Second()))
	case LayoutRotating:
		if framesPerDir <= 0 {
			framesPerDir = 1
		}
		if *rotateCount >= framesPerDir {
			*rotateCount = 0
			*rotateDir++
		}
		*rotateCount++
		return filepath.Join(outputDir, strconv.Itoa(*rotateDir))
	default:
		return outputDir
	}
}

// Body implements operator.Body for all three filesystem writer kinds,
// differing only in Encode.
type Body struct {
	OutputDir    string
	Layout       Layout
	FramesPerDir int
	Encode       func(f *frame.Frame) (name string, data []byte, err error)

	rotateCount int
	rotateDir   int
	logger      *log.Logger
}

func (b *Body) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	return os.MkdirAll(b.OutputDir, 0o755)
}

func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return nil
	}

	dir := pathFor(b.Layout, b.OutputDir, f, b.FramesPerDir, &b.rotateCount, &b.rotateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.logger.Error("writers: mkdir failed", "dir", dir, "err", err)
		return errs.NewRuntimeError("writers: mkdir %s: %v", dir, err)
	}

	name, data, err := b.Encode(f)
	if err != nil {
		b.logger.Warn("writers: encode failed, dropping frame", "err", err)
		return nil
	}

	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		b.logger.Error("writers: write failed", "path", full, "err", err)
		return errs.NewRuntimeError("writers: write %s: %v", full, err)
	}
	return nil
}

func (b *Body) OnStop() {}

func jpegEncode(f *frame.Frame) (string, []byte, error) {
	raw, err := frame.Get[[]byte](f, "original_bytes")
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%d.jpg", f.FrameID()), raw, nil
}

func frameJSONEncode(f *frame.Frame) (string, []byte, error) {
	data, err := f.ToJSON()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%d.json", f.FrameID()), data, nil
}

var binaryHandle codec.MsgpackHandle

// binaryRecord is the on-disk shape BinaryFileWriter persists: the frame
// id and the raw original_bytes, per §6. binaryEncode leaves Fields
// empty.
type binaryRecord struct {
	FrameID  uint64            `codec:"frame_id"`
	Fields   map[string][]byte `codec:"fields"`
	Original []byte            `codec:"original_bytes"`
}

func binaryEncode(f *frame.Frame) (string, []byte, error) {
	rec := binaryRecord{FrameID: f.FrameID(), Fields: map[string][]byte{}}
	if raw, err := frame.Get[[]byte](f, "original_bytes"); err == nil {
		rec.Original = raw
	}
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, &binaryHandle)
	if err := enc.Encode(&rec); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%d.bin", f.FrameID()), buf, nil
}

func paramString(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func newBody(params map[string]interface{}, encode func(*frame.Frame) (string, []byte, error)) *Body {
	b := &Body{
		OutputDir: paramString(params, "output_dir", "."),
		Layout:    Layout(paramString(params, "layout", string(LayoutFlat))),
		Encode:    encode,
	}
	if v, ok := params["frames_per_dir"].(string); ok {
		if n, err := strconv.Atoi(v); err == nil {
			b.FramesPerDir = n
		}
	}
	return b
}

// NewJpegBody constructs a Body writing raw "original_bytes" as .jpg
// files under outputDir with the given layout.
func NewJpegBody(outputDir string, layout Layout, framesPerDir int) *Body {
	return &Body{OutputDir: outputDir, Layout: layout, FramesPerDir: framesPerDir, Encode: jpegEncode}
}

// NewFrameBody constructs a Body writing the frame's JSON representation
// as .json files under outputDir with the given layout.
func NewFrameBody(outputDir string, layout Layout, framesPerDir int) *Body {
	return &Body{OutputDir: outputDir, Layout: layout, FramesPerDir: framesPerDir, Encode: frameJSONEncode}
}

// NewBinaryBody constructs a Body writing a msgpack-encoded record as
// .bin files under outputDir with the given layout.
func NewBinaryBody(outputDir string, layout Layout, framesPerDir int) *Body {
	return &Body{OutputDir: outputDir, Layout: layout, FramesPerDir: framesPerDir, Encode: binaryEncode}
}

func init() {
	operator.Register("JpegWriter", func(name string, params map[string]interface{}) (operator.Operator, error) {
		return operator.NewBase(name, "JpegWriter", []string{"input"}, nil, newBody(params, jpegEncode), log.Default()), nil
	})
	operator.Register("FrameWriter", func(name string, params map[string]interface{}) (operator.Operator, error) {
		return operator.NewBase(name, "FrameWriter", []string{"input"}, nil, newBody(params, frameJSONEncode), log.Default()), nil
	})
	operator.Register("BinaryFileWriter", func(name string, params map[string]interface{}) (operator.Operator, error) {
		return operator.NewBase(name, "BinaryFileWriter", []string{"input"}, nil, newBody(params, binaryEncode), log.Default()), nil
	})
}
