package extension

import (
	"bytes"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// The helpers below write into a bytes.Buffer, whose writes never fail, so
// the encoder errors are dropped on purpose.

func writeCompact(buf *bytes.Buffer, v *big.Int) {
	// nolint: errcheck
	_ = scale.NewEncoder(buf).EncodeUintCompact(*v)
}

func writeValue(buf *bytes.Buffer, v any) {
	// nolint: errcheck
	_ = scale.NewEncoder(buf).Encode(v)
}

func writeOption(buf *bytes.Buffer, hasValue bool, v any) {
	// nolint: errcheck
	_ = scale.NewEncoder(buf).EncodeOption(hasValue, v)
}

func readCompact(r *bytes.Reader) (*big.Int, error) {
	return scale.NewDecoder(r).DecodeUintCompact()
}
