// Package compressor implements the Compressor(type) operator of §4.6:
// it reads Field (default "original_bytes"), attaches the compressed
// result under "compressed_bytes" plus a "compression_type" marker, and
// leaves Field untouched so downstream operators still see the raw
// payload. Gzip uses the standard library's compress/gzip writer. Go's
// standard library only ships a BZIP2 *decoder* (compress/bzip2), so
// bzip2 compression shells out to the system bzip2 binary, mirroring
// the exec'd-subprocess pattern operators/plugin uses for out-of-process
// model backends.
package compressor

import (
	"bytes"
	"compress/gzip"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Algorithm selects the compression codec Body applies.
type Algorithm string

const (
	Gzip  Algorithm = "gzip"
	Bzip2 Algorithm = "bzip2"
)

// Body implements operator.Body for Compressor.
type Body struct {
	Algo  Algorithm
	Field string

	logger *log.Logger
}

func (b *Body) Init() error {
	if b.Field == "" {
		b.Field = "original_bytes"
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	return nil
}

func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return op.PushFrame("output", f)
	}

	raw, err := frame.Get[[]byte](f, b.Field)
	if err != nil {
		return op.PushFrame("output", f)
	}

	var compressed []byte
	switch b.Algo {
	case Bzip2:
		compressed, err = compressBzip2(raw)
	default:
		compressed, err = compressGzip(raw)
	}
	if err != nil {
		b.logger.Error("compressor: compression failed", "algorithm", b.Algo, "err", err)
		return errs.NewRuntimeError("compressor: %v", err)
	}

	frame.Set(f, "compressed_bytes", compressed)
	frame.Set(f, "compression_type", string(b.Algo))
	return op.PushFrame("output", f)
}

func (b *Body) OnStop() {}

func compressGzip(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressBzip2(raw []byte) ([]byte, error) {
	cmd := exec.Command("bzip2", "-z", "-c")
	cmd.Stdin = bytes.NewReader(raw)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func init() {
	operator.Register("Compressor", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{Algo: Gzip}
		if v, ok := params["algorithm"].(string); ok {
			body.Algo = Algorithm(v)
		}
		if v, ok := params["field"].(string); ok {
			body.Field = v
		}
		return operator.NewBase(name, "Compressor", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
