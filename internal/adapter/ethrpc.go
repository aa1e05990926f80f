package adapter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthRPC defines an interface for Ethereum RPC operations to enable mocking.
// It combines the typed ethclient surface with raw batch access, since
// batched eth_call round trips are only exposed by the underlying rpc client.
//
//go:generate mockgen -source=ethrpc.go -destination=../mocks/ethrpc.go -package=mocks -mock_names=EthRPC=MockEthRPC
type EthRPC interface {
	// CallContract executes a single read-only contract call
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// BatchCallContext executes independent RPC calls in one round trip.
	// Per-element failures are reported on the element, not as the returned
	// error, which is transport-level only.
	BatchCallContext(ctx context.Context, b []rpc.BatchElem) error

	// HeaderByNumber returns a header by number, the latest when nil
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// SubscribeNewHead subscribes to notifications of new chain heads
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)

	// Close closes the connection
	Close()
}

// EthRPCDialer defines an interface for dialing Ethereum RPC endpoints
//
//go:generate mockgen -source=ethrpc.go -destination=../mocks/ethrpc.go -package=mocks -mock_names=EthRPCDialer=MockEthRPCDialer
type EthRPCDialer interface {
	Dial(ctx context.Context, rawurl string) (EthRPC, error)
}

// RealEthRPCDialer implements EthRPCDialer using the standard rpc package
type RealEthRPCDialer struct{}

// NewEthRPCDialer creates a new real Ethereum RPC dialer
func NewEthRPCDialer() EthRPCDialer {
	return &RealEthRPCDialer{}
}

func (d *RealEthRPCDialer) Dial(ctx context.Context, rawurl string) (EthRPC, error) {
	rpcClient, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return &realEthRPC{
		rpc: rpcClient,
		eth: ethclient.NewClient(rpcClient),
	}, nil
}

// realEthRPC wraps one connection behind both the typed and the raw client
type realEthRPC struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

func (c *realEthRPC) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

func (c *realEthRPC) BatchCallContext(ctx context.Context, b []rpc.BatchElem) error {
	return c.rpc.BatchCallContext(ctx, b)
}

func (c *realEthRPC) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.eth.HeaderByNumber(ctx, number)
}

func (c *realEthRPC) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return c.eth.SubscribeNewHead(ctx, ch)
}

func (c *realEthRPC) Close() {
	c.rpc.Close()
}
