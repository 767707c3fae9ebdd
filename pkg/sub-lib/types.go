package sublib

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

const HashSize = 32

// Hash is a 32-byte blake2b-256 output as used for block hashes, genesis
// hashes and metadata digests.
type Hash = types.Hash

// AccountID is the 32-byte account identifier of the signer.
type AccountID [32]byte

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// HashFromHex parses a 0x-prefixed (or bare) hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(buf) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length %d, expected %d", len(buf), HashSize)
	}
	return types.NewHash(buf), nil
}

// RuntimeVersion carries the version fields the chain reports for its
// current runtime.
type RuntimeVersion struct {
	SpecName           string
	SpecVersion        uint32
	TransactionVersion uint32
}

// SignedExtensionMetadata is a single entry of the ordered signed-extension
// list declared by the chain metadata.
type SignedExtensionMetadata struct {
	Identifier       string
	TypeID           uint32
	AdditionalTypeID uint32
}

// TypeRegistry gives read access to the portable type registry of the chain
// metadata. Only the information needed by signed extensions is exposed.
type TypeRegistry interface {
	// IsZeroSized reports whether the type with the given id encodes to no
	// bytes at all (the empty tuple or a composite with no fields).
	IsZeroSized(typeID uint32) bool
}

// TypeDef is the minimal description of a registry type.
type TypeDef struct {
	Path   string
	Fields int
}

// MapRegistry is a TypeRegistry backed by a map of type ids.
type MapRegistry map[uint32]TypeDef

func (r MapRegistry) IsZeroSized(typeID uint32) bool {
	def, ok := r[typeID]
	if !ok {
		return false
	}
	return def.Fields == 0
}

// ChainMetadata is the subset of the runtime metadata consumed when building
// transactions.
type ChainMetadata struct {
	Raw        []byte
	Extensions []SignedExtensionMetadata
	Registry   TypeRegistry
}

// AccountInfo is the signer account view needed to build a transaction.
type AccountInfo struct {
	ID        AccountID
	NextNonce uint64
}

// BlockRef identifies a block by number and hash.
type BlockRef struct {
	Number uint64
	Hash   Hash
}

// ClientState is the read-only chain context shared by every signed
// extension at construction time.
type ClientState struct {
	GenesisHash    *Hash
	RuntimeVersion *RuntimeVersion
	Metadata       ChainMetadata
	Account        *AccountInfo
	BestBlock      *BlockRef
	SS58Prefix     uint16
	TokenSymbol    string
	TokenDecimals  uint8
}

var ErrMissingChainState = errors.New("missing chain state")

// ExtensionNames returns the identifiers declared by the chain in order.
func (s *ClientState) ExtensionNames() []string {
	names := make([]string, 0, len(s.Metadata.Extensions))
	for _, ext := range s.Metadata.Extensions {
		names = append(names, ext.Identifier)
	}
	return names
}
