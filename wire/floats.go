package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func doubleBits(v float64) uint64 { return math.Float64bits(v) }

func decodePackedDoubles(payload []byte) []float64 {
	var out []float64
	for len(payload) > 0 {
		v, n := protowire.ConsumeFixed64(payload)
		if n < 0 {
			break
		}
		out = append(out, math.Float64frombits(v))
		payload = payload[n:]
	}
	return out
}
