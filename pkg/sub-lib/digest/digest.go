package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"golang.org/x/crypto/blake2b"
)

const (
	// ChunkSize is the size of a metadata leaf.
	ChunkSize = 1024
	// MinMetadataVersion is the oldest metadata version that can be digested.
	MinMetadataVersion = 14

	digestVersion = 1

	leafTag   byte = 0x00
	branchTag byte = 0x01
)

var (
	ErrInvalidMetadata = errors.New("invalid metadata")

	metadataMagic = []byte{0x6d, 0x65, 0x74, 0x61} // "meta"
)

// ExtraInfo is the chain information committed to together with the
// metadata.
type ExtraInfo struct {
	SpecVersion  uint32
	SpecName     string
	Base58Prefix uint16
	Decimals     uint8
	TokenSymbol  string
}

// Generate computes the metadata digest of the given raw metadata. The
// result only depends on its inputs.
func Generate(metadata []byte, info ExtraInfo) (sublib.Hash, error) {
	body, err := metadataBody(metadata)
	if err != nil {
		return sublib.Hash{}, err
	}

	root := TypeRoot(body)
	return blake2b.Sum256(encodeDigest(root, info)), nil
}

// TypeRoot returns the merkle root of the metadata body, split into
// ChunkSize leaves.
func TypeRoot(body []byte) sublib.Hash {
	nodes := make([]sublib.Hash, 0, len(body)/ChunkSize+1)
	for start := 0; start < len(body); start += ChunkSize {
		end := min(start+ChunkSize, len(body))
		nodes = append(nodes, hashLeaf(body[start:end]))
	}
	if len(nodes) == 0 {
		return hashLeaf(nil)
	}

	for len(nodes) > 1 {
		next := make([]sublib.Hash, 0, (len(nodes)+1)/2)
		for i := 0; i+1 < len(nodes); i += 2 {
			next = append(next, hashBranch(nodes[i], nodes[i+1]))
		}
		// odd node is promoted
		if len(nodes)%2 == 1 {
			next = append(next, nodes[len(nodes)-1])
		}
		nodes = next
	}
	return nodes[0]
}

func metadataBody(metadata []byte) ([]byte, error) {
	if len(metadata) < len(metadataMagic)+1 {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidMetadata, len(metadata))
	}
	if !bytes.Equal(metadata[:len(metadataMagic)], metadataMagic) {
		return nil, fmt.Errorf("%w: magic number mismatch", ErrInvalidMetadata)
	}
	version := metadata[len(metadataMagic)]
	if version < MinMetadataVersion {
		return nil, fmt.Errorf(
			"%w: version %d not supported, min %d", ErrInvalidMetadata, version, MinMetadataVersion,
		)
	}
	body := metadata[len(metadataMagic)+1:]
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidMetadata)
	}
	return body, nil
}

func hashLeaf(chunk []byte) sublib.Hash {
	buf := make([]byte, 0, len(chunk)+1)
	buf = append(buf, leafTag)
	buf = append(buf, chunk...)
	return blake2b.Sum256(buf)
}

// hashBranch hashes the children in position order, so the root commits to
// the order of the chunks.
func hashBranch(left, right sublib.Hash) sublib.Hash {
	buf := make([]byte, 0, 1+2*sublib.HashSize)
	buf = append(buf, branchTag)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return blake2b.Sum256(buf)
}

func encodeDigest(root sublib.Hash, info ExtraInfo) []byte {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	// writes into a bytes.Buffer never fail
	_ = enc.PushByte(digestVersion)
	_ = enc.Write(root[:])
	_ = enc.Encode(info.SpecVersion)
	_ = enc.Encode(info.SpecName)
	_ = enc.Encode(info.Base58Prefix)
	_ = enc.Encode(info.Decimals)
	_ = enc.Encode(info.TokenSymbol)
	return buf.Bytes()
}

// Provider exposes Generate to the application layer.
type Provider struct{}

func NewProvider() Provider {
	return Provider{}
}

func (Provider) Digest(
	ctx context.Context, metadata []byte, info ExtraInfo,
) (sublib.Hash, error) {
	if err := ctx.Err(); err != nil {
		return sublib.Hash{}, err
	}
	return Generate(metadata, info)
}
