package solana

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPClient implements RPCClient and MetadataClient on top of a Gateway.
// Listing and account calls go to the primary provider, asset lookups to
// the secondary.
type HTTPClient struct {
	gw        *Gateway
	primary   *Provider
	secondary *Provider
	logger    zerolog.Logger
}

// NewHTTPClient creates a client. A nil secondary falls back to primary.
func NewHTTPClient(gw *Gateway, primary, secondary *Provider) *HTTPClient {
	if secondary == nil {
		secondary = primary
	}
	return &HTTPClient{
		gw:        gw,
		primary:   primary,
		secondary: secondary,
		logger:    gw.logger,
	}
}

// Compile-time interface checks.
var (
	_ RPCClient      = (*HTTPClient)(nil)
	_ MetadataClient = (*HTTPClient)(nil)
)

// decode unmarshals raw into v, logging shape failures.
func (c *HTTPClient) decode(method string, raw json.RawMessage, v interface{}) bool {
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn().Err(err).Str("method", method).Msg("unexpected result shape")
		return false
	}
	return true
}

// GetSignaturesForAddress retrieves signatures for a wallet from the primary provider.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) []SignatureInfo {
	return c.signatures(ctx, c.primary, address, opts)
}

// GetMintSignatures retrieves signatures for a mint from the secondary provider.
func (c *HTTPClient) GetMintSignatures(ctx context.Context, mint string, limit int) []SignatureInfo {
	return c.signatures(ctx, c.secondary, mint, &SignaturesOpts{Limit: limit})
}

func (c *HTTPClient) signatures(ctx context.Context, p *Provider, address string, opts *SignaturesOpts) []SignatureInfo {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if !c.decode("getSignaturesForAddress", c.gw.Call(ctx, p, "getSignaturesForAddress", params), &result) {
		return nil
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}
	return sigs
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetTransaction retrieves a transaction with pre-resolved token balances.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) *Transaction {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getTransactionResult
	if !c.decode("getTransaction", c.gw.Call(ctx, c.primary, "getTransaction", params), &result) {
		return nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
		BlockTime: result.BlockTime,
	}
	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:               result.Meta.Err,
			PreTokenBalances:  convertBalances(result.Meta.PreTokenBalances),
			PostTokenBalances: convertBalances(result.Meta.PostTokenBalances),
		}
	}
	return tx
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot      int64               `json:"slot"`
	BlockTime *int64              `json:"blockTime"`
	Meta      *getTransactionMeta `json:"meta"`
}

type getTransactionMeta struct {
	Err               interface{}       `json:"err"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
}

type rawTokenBalance struct {
	AccountIndex  int              `json:"accountIndex"`
	Mint          string           `json:"mint"`
	Owner         string           `json:"owner"`
	ProgramID     string           `json:"programId"`
	UITokenAmount rawUITokenAmount `json:"uiTokenAmount"`
}

type rawUITokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int32    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// value prefers the exact string form, then the float, then raw/10^decimals.
// Missing amounts are zero.
func (u rawUITokenAmount) value() decimal.Decimal {
	if u.UIAmountString != "" {
		if d, err := decimal.NewFromString(u.UIAmountString); err == nil {
			return d
		}
	}
	if u.UIAmount != nil {
		return decimal.NewFromFloat(*u.UIAmount)
	}
	if u.Amount != "" {
		if d, err := decimal.NewFromString(u.Amount); err == nil {
			return d.Shift(-u.Decimals)
		}
	}
	return decimal.Zero
}

func convertBalances(raw []rawTokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(raw))
	for i, r := range raw {
		out[i] = TokenBalance{
			AccountIndex: r.AccountIndex,
			Mint:         r.Mint,
			Owner:        r.Owner,
			ProgramID:    r.ProgramID,
			Amount:       r.UITokenAmount.value(),
		}
	}
	return out
}

// GetTokenAccountsByOwner lists parsed token accounts of owner under programID.
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner, programID string) []TokenAccount {
	params := []interface{}{
		owner,
		map[string]string{"programId": programID},
		map[string]string{"encoding": "jsonParsed"},
	}

	var result getTokenAccountsResult
	if !c.decode("getTokenAccountsByOwner", c.gw.Call(ctx, c.primary, "getTokenAccountsByOwner", params), &result) {
		return nil
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, v := range result.Value {
		info := v.Account.Data.Parsed.Info
		accounts = append(accounts, TokenAccount{
			Pubkey: v.Pubkey,
			Mint:   info.Mint,
			Owner:  info.Owner,
			Amount: info.TokenAmount.value(),
		})
	}
	return accounts
}

type getTokenAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string           `json:"mint"`
						Owner       string           `json:"owner"`
						TokenAmount rawUITokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// GetAsset retrieves DAS asset metadata from the secondary provider.
func (c *HTTPClient) GetAsset(ctx context.Context, mint string) *Asset {
	params := map[string]string{"id": mint}

	var result getAssetResult
	if !c.decode("getAsset", c.gw.Call(ctx, c.secondary, "getAsset", params), &result) {
		return nil
	}

	asset := &Asset{
		ID:     result.ID,
		Name:   result.Content.Metadata.Name,
		Symbol: result.Content.Metadata.Symbol,
	}
	if asset.Symbol == "" {
		asset.Symbol = result.TokenInfo.Symbol
	}
	return asset
}

type getAssetResult struct {
	ID      string `json:"id"`
	Content struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
	TokenInfo struct {
		Symbol string `json:"symbol"`
	} `json:"token_info"`
}
