package extrinsic

import (
	"bytes"
	"fmt"
	"math/big"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// CallIndex locates a call in the runtime: the pallet index followed by the
// call index within the pallet.
type CallIndex struct {
	Pallet byte
	Call   byte
}

// DefaultTransferAllowDeath is the Balances.transfer_allow_death index of
// the reference runtime.
var DefaultTransferAllowDeath = CallIndex{Pallet: 5, Call: 0}

// TransferAllowDeath encodes a balance transfer to dest.
func TransferAllowDeath(index CallIndex, dest sublib.AccountID, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid transfer amount %v", amount)
	}

	var buf bytes.Buffer
	buf.WriteByte(index.Pallet)
	buf.WriteByte(index.Call)
	buf.WriteByte(addressID)
	buf.Write(dest[:])
	if err := scale.NewEncoder(&buf).EncodeUintCompact(*amount); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
