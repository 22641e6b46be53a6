package stub

import (
	"context"
	"sync"

	"solana-copurchase/internal/solana"
)

// RPCClient implements solana.RPCClient and solana.MetadataClient for testing.
// Missing entries behave like an exhausted upstream: empty results.
type RPCClient struct {
	mu            sync.Mutex
	Transactions  map[string]*solana.Transaction
	Signatures    map[string][]solana.SignatureInfo
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner
	Assets        map[string]*solana.Asset
	Calls         map[string]int // method -> call count
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:  make(map[string]*solana.Transaction),
		Signatures:    make(map[string][]solana.SignatureInfo),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Assets:        make(map[string]*solana.Asset),
		Calls:         make(map[string]int),
	}
}

var (
	_ solana.RPCClient      = (*RPCClient)(nil)
	_ solana.MetadataClient = (*RPCClient)(nil)
)

func (c *RPCClient) count(method string) {
	c.Calls[method]++
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// GetSignaturesForAddress returns stored signatures for an address.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) []solana.SignatureInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getSignaturesForAddress")
	return limit(c.Signatures[address], opts)
}

// GetMintSignatures returns stored signatures for a mint.
func (c *RPCClient) GetMintSignatures(_ context.Context, mint string, n int) []solana.SignatureInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getMintSignatures")
	return limit(c.Signatures[mint], &solana.SignaturesOpts{Limit: n})
}

func limit(sigs []solana.SignatureInfo, opts *solana.SignaturesOpts) []solana.SignatureInfo {
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}
	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out
}

// GetTransaction returns a stored transaction, or nil.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) *solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getTransaction")
	return c.Transactions[signature]
}

// GetTokenAccountsByOwner returns stored accounts of owner under programID.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, _ string) []solana.TokenAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getTokenAccountsByOwner")
	accts := c.TokenAccounts[owner]
	out := make([]solana.TokenAccount, len(accts))
	copy(out, accts)
	return out
}

// GetAsset returns stored asset metadata, or nil.
func (c *RPCClient) GetAsset(_ context.Context, mint string) *solana.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getAsset")
	return c.Assets[mint]
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// AddTokenAccounts adds token accounts for an owner.
func (c *RPCClient) AddTokenAccounts(owner string, accts []solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[owner] = accts
}
