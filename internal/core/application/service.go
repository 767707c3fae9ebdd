package application

import (
	"bytes"
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/arkade-os/subsign/internal/core/domain"
	"github.com/arkade-os/subsign/internal/core/ports"
	"github.com/arkade-os/subsign/pkg/errors"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/digest"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

type service struct {
	// services
	chain       ports.ChainClient
	digests     ports.DigestProvider
	cache       ports.DigestCache
	signer      ports.SignerService
	repoManager ports.RepoManager

	// config
	layout       []string
	transferCall extrinsic.CallIndex
}

func NewService(
	chain ports.ChainClient,
	digests ports.DigestProvider,
	cache ports.DigestCache,
	signer ports.SignerService,
	repoManager ports.RepoManager,
	layout []string,
	transferCall extrinsic.CallIndex,
) (Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("missing chain client")
	}
	if digests == nil {
		return nil, fmt.Errorf("missing digest provider")
	}
	if cache == nil {
		return nil, fmt.Errorf("missing digest cache")
	}
	if signer == nil {
		return nil, fmt.Errorf("missing signer")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if len(layout) == 0 {
		layout = extension.DefaultLayout
	}

	return &service{
		chain:        chain,
		digests:      digests,
		cache:        cache,
		signer:       signer,
		repoManager:  repoManager,
		layout:       append([]string(nil), layout...),
		transferCall: transferCall,
	}, nil
}

func (s *service) BuildTransaction(
	ctx context.Context, req BuildRequest,
) (*domain.Transaction, errors.Error) {
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return nil, errors.INVALID_REQUEST.New("invalid amount %v", req.Amount).
			WithMetadata(errors.InvalidRequestMetadata{Field: "amount", Value: fmt.Sprint(req.Amount)})
	}
	if req.Tip != nil && req.Tip.Sign() < 0 {
		return nil, errors.INVALID_REQUEST.New("invalid tip %s", req.Tip).
			WithMetadata(errors.InvalidRequestMetadata{Field: "tip", Value: req.Tip.String()})
	}

	state, err := s.chain.State(ctx)
	if err != nil {
		return nil, errors.CHAIN_STATE_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.ChainStateMetadata{Source: "state"})
	}
	signerID := s.signer.AccountID()
	if req.Nonce == nil {
		account, err := s.chain.Account(ctx, signerID)
		if err != nil {
			return nil, errors.CHAIN_STATE_UNAVAILABLE.Wrap(err).
				WithMetadata(errors.ChainStateMetadata{Source: "account"})
		}
		state.Account = account
	}

	builder := extension.NewParamsBuilder().Layout(s.layout...)
	if req.Nonce != nil {
		builder.Nonce(*req.Nonce)
	}
	if req.Tip != nil {
		if req.AssetID != nil {
			builder.TipOfAsset(req.Tip, *req.AssetID)
		} else {
			builder.Tip(req.Tip)
		}
	}
	if req.MortalPeriod > 0 {
		if state.BestBlock == nil {
			return nil, errors.CHAIN_STATE_UNAVAILABLE.New(
				"best block required for mortal transactions",
			).WithMetadata(errors.ChainStateMetadata{Source: "best block"})
		}
		builder.Mortal(*state.BestBlock, req.MortalPeriod)
	}

	// the digest is resolved before any extension is built, a failure here
	// aborts the whole build
	var metadataDigest *sublib.Hash
	if req.CheckMetadata {
		d, err := s.digest(ctx, state)
		if err != nil {
			return nil, err
		}
		metadataDigest = d
		builder.MetadataDigest(*d)
	}

	exts, constructErr := extension.New(state, builder.Build())
	if constructErr != nil {
		metadata := errors.ConstructionMetadata{Index: -1}
		var e *extension.ConstructionError
		if stderrors.As(constructErr, &e) {
			metadata = errors.ConstructionMetadata{Index: e.Index, Identifier: e.Identifier}
		}
		return nil, errors.CONSTRUCTION_ERROR.Wrap(constructErr).WithMetadata(metadata)
	}

	call, err := extrinsic.TransferAllowDeath(s.transferCall, req.Dest, req.Amount)
	if err != nil {
		return nil, errors.INVALID_REQUEST.Wrap(err).
			WithMetadata(errors.InvalidRequestMetadata{Field: "amount", Value: req.Amount.String()})
	}

	extra := exts.EncodeExtra()
	additional := exts.EncodeAdditional()
	payload := extrinsic.SignerPayload(call, extra, additional)

	sig, err := s.signer.Sign(ctx, payload)
	if err != nil {
		return nil, errors.SIGNING_FAILED.Wrap(err).
			WithMetadata(errors.SignerMetadata{Signer: signerID.String()})
	}

	encoded, err := extrinsic.Encode(signerID, *sig, extra, call)
	if err != nil {
		return nil, errors.SIGNING_FAILED.Wrap(err).
			WithMetadata(errors.SignerMetadata{Signer: signerID.String()})
	}

	nonce, _ := extension.FindUnit[*extension.CheckNonce](exts)
	var nonceValue uint64
	if nonce != nil {
		nonceValue = nonce.Nonce()
	}
	var specVersion uint32
	if state.RuntimeVersion != nil {
		specVersion = state.RuntimeVersion.SpecVersion
	}

	tx := domain.NewTransaction(
		signerID.String(), req.Dest.String(), req.Amount.String(),
		nonceValue, specVersion, exts.Identifiers(),
	)
	tx.MetadataMode = extension.ModeDisabled.String()
	if metadataDigest != nil {
		tx.MetadataMode = extension.ModeEnabled.String()
		tx.MetadataDigest = hex.EncodeToString(metadataDigest[:])
	}
	tx.Call = hex.EncodeToString(call)
	tx.Extra = hex.EncodeToString(extra)
	tx.Additional = hex.EncodeToString(additional)
	tx.SignerPayload = hex.EncodeToString(payload)
	tx.Extrinsic = hex.EncodeToString(encoded)

	if err := s.repoManager.Transactions().Add(ctx, *tx); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err).
			WithMetadata(map[string]any{"operation": "add", "id": tx.Id})
	}

	log.WithFields(log.Fields{
		"id":            tx.Id,
		"nonce":         tx.Nonce,
		"metadata_mode": tx.MetadataMode,
	}).Debug("built transaction")

	return tx, nil
}

func (s *service) ComputeDigest(ctx context.Context) (*DigestInfo, errors.Error) {
	state, err := s.chain.State(ctx)
	if err != nil {
		return nil, errors.CHAIN_STATE_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.ChainStateMetadata{Source: "state"})
	}

	d, digestErr := s.digest(ctx, state)
	if digestErr != nil {
		return nil, digestErr
	}
	info, _ := extraInfo(state)

	return &DigestInfo{
		Digest:      hex.EncodeToString(d[:]),
		SpecName:    info.SpecName,
		SpecVersion: info.SpecVersion,
		Base58:      info.Base58Prefix,
		TokenSymbol: info.TokenSymbol,
		Decimals:    info.Decimals,
	}, nil
}

func (s *service) GetTransaction(
	ctx context.Context, id string,
) (*domain.Transaction, errors.Error) {
	tx, err := s.repoManager.Transactions().Get(ctx, id)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err).
			WithMetadata(map[string]any{"operation": "get", "id": id})
	}
	if tx == nil {
		return nil, errors.TX_NOT_FOUND.New("transaction %s not found", id).
			WithMetadata(errors.TxNotFoundMetadata{ID: id})
	}
	return tx, nil
}

func (s *service) ListTransactions(ctx context.Context) ([]domain.Transaction, errors.Error) {
	txs, err := s.repoManager.Transactions().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err).
			WithMetadata(map[string]any{"operation": "list"})
	}
	return txs, nil
}

// DecodeTransaction reads back a signed extrinsic. The extension layout is
// taken from the current chain state, the metadata digest is never
// recovered since it is not part of the extrinsic.
func (s *service) DecodeTransaction(
	ctx context.Context, tx string,
) (*DecodedTransaction, errors.Error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(tx, "0x"))
	if err != nil {
		return nil, errors.MALFORMED_EXTRINSIC.Wrap(err).
			WithMetadata(errors.ExtrinsicMetadata{Tx: tx})
	}
	signed, err := extrinsic.Decode(buf)
	if err != nil {
		return nil, errors.MALFORMED_EXTRINSIC.Wrap(err).
			WithMetadata(errors.ExtrinsicMetadata{Tx: tx})
	}

	state, err := s.chain.State(ctx)
	if err != nil {
		return nil, errors.CHAIN_STATE_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.ChainStateMetadata{Source: "state"})
	}

	// the observer chain only provides the layout, its params are irrelevant
	observer, err := extension.New(
		state, extension.NewParamsBuilder().Layout(s.layout...).Nonce(0).Build(),
	)
	if err != nil {
		return nil, errors.CONSTRUCTION_ERROR.Wrap(err).
			WithMetadata(errors.ConstructionMetadata{Index: -1})
	}

	r := bytes.NewReader(signed.Body)
	decoded, err := observer.DecodeExtraFrom(r)
	if err != nil {
		return nil, errors.MALFORMED_EXTRINSIC.Wrap(err).
			WithMetadata(errors.ExtrinsicMetadata{Tx: tx})
	}
	call := make([]byte, r.Len())
	// nolint: errcheck
	r.Read(call)

	result := &DecodedTransaction{
		Signer:        signed.Signer.String(),
		SignatureKind: signed.Signature.Kind.String(),
		Extensions:    decoded,
		Call:          hex.EncodeToString(call),
	}
	if mode, ok := extension.FindDecoded[extension.Mode](
		decoded, extension.CheckMetadataHashIdentifier,
	); ok {
		result.MetadataMode = mode.String()
	}
	return result, nil
}

func (s *service) Close() {
	s.cache.Close()
	s.chain.Close()
	s.repoManager.Close()
}

// digest returns the metadata digest for the given state. The cache is
// keyed on every input of the digest (metadata, spec version, spec name,
// ss58 prefix, decimals and token symbol), so a cached value is reused only
// when all of them are identical to the ones it was computed from.
func (s *service) digest(ctx context.Context, state *sublib.ClientState) (*sublib.Hash, errors.Error) {
	info, err := extraInfo(state)
	if err != nil {
		return nil, errors.CHAIN_STATE_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.ChainStateMetadata{Source: "runtime version"})
	}
	key := digestCacheKey(state.Metadata.Raw, info)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("failed to read digest cache")
	}
	if cached != nil {
		return cached, nil
	}

	d, err := s.digests.Digest(ctx, state.Metadata.Raw, info)
	if err != nil {
		return nil, errors.UPSTREAM_DIGEST_ERROR.Wrap(err).
			WithMetadata(errors.DigestMetadata{SpecName: info.SpecName, SpecVersion: info.SpecVersion})
	}

	if err := s.cache.Set(ctx, key, d); err != nil {
		log.WithError(err).Warn("failed to write digest cache")
	}
	log.WithFields(log.Fields{
		"spec_name":    info.SpecName,
		"spec_version": info.SpecVersion,
		"digest":       hex.EncodeToString(d[:]),
	}).Debug("computed metadata digest")

	return &d, nil
}

func extraInfo(state *sublib.ClientState) (digest.ExtraInfo, error) {
	if state.RuntimeVersion == nil {
		return digest.ExtraInfo{}, fmt.Errorf("%w: runtime version", sublib.ErrMissingChainState)
	}
	return digest.ExtraInfo{
		SpecVersion:  state.RuntimeVersion.SpecVersion,
		SpecName:     state.RuntimeVersion.SpecName,
		Base58Prefix: state.SS58Prefix,
		Decimals:     state.TokenDecimals,
		TokenSymbol:  state.TokenSymbol,
	}, nil
}

// digestCacheKey hashes the SCALE encoding of the metadata hash and of every
// ExtraInfo field. Strings are length prefixed, so distinct inputs never
// share a key.
func digestCacheKey(metadata []byte, info digest.ExtraInfo) string {
	metadataHash := blake2b.Sum256(metadata)

	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	// writes into a bytes.Buffer never fail
	_ = enc.Write(metadataHash[:])
	_ = enc.Encode(info.SpecVersion)
	_ = enc.Encode(info.SpecName)
	_ = enc.Encode(info.Base58Prefix)
	_ = enc.Encode(info.Decimals)
	_ = enc.Encode(info.TokenSymbol)

	key := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(key[:])
}
