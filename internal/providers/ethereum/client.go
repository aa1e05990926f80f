package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/ratelimit"
)

// licenseContractABI covers the two read functions the discovery pipeline
// consumes. The contract is non-enumerable: there is no totalSupply or
// tokenByIndex, which is why the boundary prober exists at all.
const licenseContractABI = `[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"datasetOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// ProviderETHRPC is the rate-limit proxy provider name for RPC traffic.
const ProviderETHRPC = "eth_rpc"

// OwnerResult is the per-item outcome of a batched ownerOf round trip.
// Err is set for items that reverted or failed to decode; the batch itself
// still succeeded.
type OwnerResult struct {
	TokenID domain.TokenID
	Owner   common.Address
	Err     error
}

// DatasetResult is the per-item outcome of a batched datasetOf round trip.
type DatasetResult struct {
	TokenID   domain.TokenID
	DatasetID domain.DatasetID
	Err       error
}

// LicenseReader reads the license contract. All methods are read-only.
//
//go:generate mockgen -source=client.go -destination=../../mocks/license_reader.go -package=mocks -mock_names=LicenseReader=MockLicenseReader
type LicenseReader interface {
	// DatasetOf returns the dataset id attached to a token, 0 when the
	// token slot was never minted.
	DatasetOf(ctx context.Context, tokenID domain.TokenID) (domain.DatasetID, error)

	// OwnerOf returns the current owner of a token. It fails for token ids
	// that were never minted or have been burned.
	OwnerOf(ctx context.Context, tokenID domain.TokenID) (common.Address, error)

	// BatchOwnerOf resolves owners for all tokenIDs in one JSON-RPC round
	// trip. The returned error is transport-level only; individual reverts
	// land on the corresponding OwnerResult.
	BatchOwnerOf(ctx context.Context, tokenIDs []domain.TokenID) ([]OwnerResult, error)

	// BatchDatasetOf resolves dataset ids for all tokenIDs in one JSON-RPC
	// round trip, with the same per-item failure semantics as BatchOwnerOf.
	BatchDatasetOf(ctx context.Context, tokenIDs []domain.TokenID) ([]DatasetResult, error)

	// Close closes the underlying connection
	Close()
}

type licenseReader struct {
	contract common.Address
	abi      abi.ABI
	client   adapter.EthRPC
	proxy    ratelimit.Proxy
}

// NewLicenseReader creates a reader for the license contract at the given
// address. proxy may be nil, in which case calls go out unthrottled.
func NewLicenseReader(contract common.Address, client adapter.EthRPC, proxy ratelimit.Proxy) (LicenseReader, error) {
	parsed, err := abi.JSON(strings.NewReader(licenseContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &licenseReader{
		contract: contract,
		abi:      parsed,
		client:   client,
		proxy:    proxy,
	}, nil
}

// DatasetOf returns the dataset id attached to a token
func (c *licenseReader) DatasetOf(ctx context.Context, tokenID domain.TokenID) (domain.DatasetID, error) {
	data, err := c.abi.Pack("datasetOf", new(big.Int).SetUint64(uint64(tokenID)))
	if err != nil {
		return 0, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.callContract(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("failed to call contract: %w", err)
	}

	var datasetID *big.Int
	if err := c.abi.UnpackIntoInterface(&datasetID, "datasetOf", result); err != nil {
		return 0, fmt.Errorf("failed to unpack result: %w", err)
	}

	return domain.DatasetID(datasetID.Uint64()), nil
}

// OwnerOf returns the current owner of a token
func (c *licenseReader) OwnerOf(ctx context.Context, tokenID domain.TokenID) (common.Address, error) {
	data, err := c.abi.Pack("ownerOf", new(big.Int).SetUint64(uint64(tokenID)))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.callContract(ctx, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call contract: %w", err)
	}

	var owner common.Address
	if err := c.abi.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack result: %w", err)
	}

	return owner, nil
}

// BatchOwnerOf resolves owners for all tokenIDs in one round trip
func (c *licenseReader) BatchOwnerOf(ctx context.Context, tokenIDs []domain.TokenID) ([]OwnerResult, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}

	elems, raw, err := c.buildBatch("ownerOf", tokenIDs)
	if err != nil {
		return nil, err
	}

	if err := c.batchCall(ctx, elems); err != nil {
		return nil, fmt.Errorf("failed to execute batch call: %w", err)
	}

	out := make([]OwnerResult, len(tokenIDs))
	for i, id := range tokenIDs {
		out[i].TokenID = id
		if elems[i].Error != nil {
			out[i].Err = elems[i].Error
			continue
		}

		var owner common.Address
		if err := c.abi.UnpackIntoInterface(&owner, "ownerOf", raw[i]); err != nil {
			out[i].Err = fmt.Errorf("failed to unpack result: %w", err)
			continue
		}
		out[i].Owner = owner
	}

	return out, nil
}

// BatchDatasetOf resolves dataset ids for all tokenIDs in one round trip
func (c *licenseReader) BatchDatasetOf(ctx context.Context, tokenIDs []domain.TokenID) ([]DatasetResult, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}

	elems, raw, err := c.buildBatch("datasetOf", tokenIDs)
	if err != nil {
		return nil, err
	}

	if err := c.batchCall(ctx, elems); err != nil {
		return nil, fmt.Errorf("failed to execute batch call: %w", err)
	}

	out := make([]DatasetResult, len(tokenIDs))
	for i, id := range tokenIDs {
		out[i].TokenID = id
		if elems[i].Error != nil {
			out[i].Err = elems[i].Error
			continue
		}

		var datasetID *big.Int
		if err := c.abi.UnpackIntoInterface(&datasetID, "datasetOf", raw[i]); err != nil {
			out[i].Err = fmt.Errorf("failed to unpack result: %w", err)
			continue
		}
		out[i].DatasetID = domain.DatasetID(datasetID.Uint64())
	}

	return out, nil
}

// Close closes the underlying connection
func (c *licenseReader) Close() {
	c.client.Close()
}

// buildBatch packs one eth_call batch element per token id. raw aliases the
// per-element result buffers so callers can unpack after the round trip.
func (c *licenseReader) buildBatch(method string, tokenIDs []domain.TokenID) ([]rpc.BatchElem, []hexutil.Bytes, error) {
	elems := make([]rpc.BatchElem, len(tokenIDs))
	raw := make([]hexutil.Bytes, len(tokenIDs))

	for i, id := range tokenIDs {
		data, err := c.abi.Pack(method, new(big.Int).SetUint64(uint64(id)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to pack data: %w", err)
		}

		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{
					"to":   &c.contract,
					"data": hexutil.Bytes(data),
				},
				"latest",
			},
			Result: &raw[i],
		}
	}

	return elems, raw, nil
}

func (c *licenseReader) callContract(ctx context.Context, data []byte) ([]byte, error) {
	return ratelimit.Request(ctx, c.proxy, ProviderETHRPC, func(ctx context.Context) ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
	})
}

func (c *licenseReader) batchCall(ctx context.Context, elems []rpc.BatchElem) error {
	_, err := ratelimit.Request(ctx, c.proxy, ProviderETHRPC, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.BatchCallContext(ctx, elems)
	})
	return err
}
