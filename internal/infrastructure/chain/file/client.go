package filechain

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arkade-os/subsign/internal/core/ports"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type runtimeVersion struct {
	SpecName           string `mapstructure:"spec_name"`
	SpecVersion        uint32 `mapstructure:"spec_version"`
	TransactionVersion uint32 `mapstructure:"transaction_version"`
}

type extension struct {
	Identifier       string `mapstructure:"identifier"`
	TypeID           uint32 `mapstructure:"type_id"`
	AdditionalTypeID uint32 `mapstructure:"additional_type_id"`
}

type typeDef struct {
	ID     uint32 `mapstructure:"id"`
	Path   string `mapstructure:"path"`
	Fields int    `mapstructure:"fields"`
}

type block struct {
	Number uint64 `mapstructure:"number"`
	Hash   string `mapstructure:"hash"`
}

type account struct {
	ID    string `mapstructure:"id"`
	Nonce uint64 `mapstructure:"nonce"`
}

// snapshot is the on-disk description of the chain.
type snapshot struct {
	GenesisHash    string          `mapstructure:"genesis_hash"`
	RuntimeVersion *runtimeVersion `mapstructure:"runtime_version"`
	SS58Prefix     uint16          `mapstructure:"ss58_prefix"`
	TokenSymbol    string          `mapstructure:"token_symbol"`
	TokenDecimals  uint8           `mapstructure:"token_decimals"`
	Metadata       string          `mapstructure:"metadata"`
	MetadataFile   string          `mapstructure:"metadata_file"`
	Extensions     []extension     `mapstructure:"extensions"`
	Types          []typeDef       `mapstructure:"types"`
	BestBlock      *block          `mapstructure:"best_block"`
	Accounts       []account       `mapstructure:"accounts"`
}

type chainClient struct {
	lock     *sync.RWMutex
	state    sublib.ClientState
	accounts map[sublib.AccountID]uint64
	closed   bool
}

// NewChainClient loads a chain snapshot from a json, yaml or toml file. The
// metadata is either inlined in hex or read from a file whose path is
// relative to the snapshot.
func NewChainClient(path string) (ports.ChainClient, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read chain snapshot: %s", err)
	}

	var snap snapshot
	if err := v.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse chain snapshot: %s", err)
	}

	state, accounts, err := snap.parse(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("invalid chain snapshot: %s", err)
	}

	log.WithFields(log.Fields{
		"path":       path,
		"extensions": len(state.Metadata.Extensions),
		"accounts":   len(accounts),
	}).Debug("loaded chain snapshot")

	return &chainClient{&sync.RWMutex{}, *state, accounts, false}, nil
}

func (c *chainClient) State(ctx context.Context) (*sublib.ClientState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("chain client closed")
	}

	state := c.state
	state.Metadata.Extensions = append(
		[]sublib.SignedExtensionMetadata(nil), c.state.Metadata.Extensions...,
	)
	return &state, nil
}

// Account returns the next nonce of the given account, unknown accounts
// start from 0.
func (c *chainClient) Account(
	ctx context.Context, id sublib.AccountID,
) (*sublib.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("chain client closed")
	}

	return &sublib.AccountInfo{ID: id, NextNonce: c.accounts[id]}, nil
}

func (c *chainClient) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
}

func (s snapshot) parse(dir string) (*sublib.ClientState, map[sublib.AccountID]uint64, error) {
	state := &sublib.ClientState{
		SS58Prefix:    s.SS58Prefix,
		TokenSymbol:   s.TokenSymbol,
		TokenDecimals: s.TokenDecimals,
	}

	if s.GenesisHash != "" {
		genesis, err := sublib.HashFromHex(s.GenesisHash)
		if err != nil {
			return nil, nil, fmt.Errorf("genesis_hash: %s", err)
		}
		state.GenesisHash = &genesis
	}

	if s.RuntimeVersion != nil {
		state.RuntimeVersion = &sublib.RuntimeVersion{
			SpecName:           s.RuntimeVersion.SpecName,
			SpecVersion:        s.RuntimeVersion.SpecVersion,
			TransactionVersion: s.RuntimeVersion.TransactionVersion,
		}
	}

	if s.BestBlock != nil {
		hash, err := sublib.HashFromHex(s.BestBlock.Hash)
		if err != nil {
			return nil, nil, fmt.Errorf("best_block: %s", err)
		}
		state.BestBlock = &sublib.BlockRef{Number: s.BestBlock.Number, Hash: hash}
	}

	metadata, err := s.metadata(dir)
	if err != nil {
		return nil, nil, err
	}
	state.Metadata.Raw = metadata

	registry := make(sublib.MapRegistry, len(s.Types))
	for _, t := range s.Types {
		registry[t.ID] = sublib.TypeDef{Path: t.Path, Fields: t.Fields}
	}
	state.Metadata.Registry = registry

	for i, ext := range s.Extensions {
		if ext.Identifier == "" {
			return nil, nil, fmt.Errorf("extensions[%d]: missing identifier", i)
		}
		state.Metadata.Extensions = append(state.Metadata.Extensions, sublib.SignedExtensionMetadata{
			Identifier:       ext.Identifier,
			TypeID:           ext.TypeID,
			AdditionalTypeID: ext.AdditionalTypeID,
		})
	}

	accounts := make(map[sublib.AccountID]uint64, len(s.Accounts))
	for i, a := range s.Accounts {
		buf, err := hex.DecodeString(strings.TrimPrefix(a.ID, "0x"))
		if err != nil || len(buf) != len(sublib.AccountID{}) {
			return nil, nil, fmt.Errorf("accounts[%d]: invalid id %s", i, a.ID)
		}
		var id sublib.AccountID
		copy(id[:], buf)
		accounts[id] = a.Nonce
	}

	return state, accounts, nil
}

func (s snapshot) metadata(dir string) ([]byte, error) {
	if s.Metadata != "" && s.MetadataFile != "" {
		return nil, fmt.Errorf("metadata and metadata_file are mutually exclusive")
	}
	if s.Metadata != "" {
		buf, err := hex.DecodeString(strings.TrimPrefix(s.Metadata, "0x"))
		if err != nil {
			return nil, fmt.Errorf("metadata: %s", err)
		}
		return buf, nil
	}
	if s.MetadataFile == "" {
		return nil, nil
	}

	path := s.MetadataFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata_file: %s", err)
	}
	// files fetched via state_getMetadata are hex strings
	if trimmed := strings.TrimSpace(string(buf)); strings.HasPrefix(trimmed, "0x") {
		decoded, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return nil, fmt.Errorf("metadata_file: %s", err)
		}
		return decoded, nil
	}
	return buf, nil
}
