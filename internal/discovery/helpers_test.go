package discovery

import (
	"github.com/shopspring/decimal"

	"solana-copurchase/internal/solana"
	"solana-copurchase/internal/solana/stub"
)

func i64(v int64) *int64 { return &v }

func bal(mint, owner, amount string) solana.TokenBalance {
	return solana.TokenBalance{Mint: mint, Owner: owner, Amount: decimal.RequireFromString(amount)}
}

func tx(sig string, blockTime int64, pre, post []solana.TokenBalance) *solana.Transaction {
	return &solana.Transaction{
		Signature: sig,
		BlockTime: i64(blockTime),
		Meta: &solana.TransactionMeta{
			PreTokenBalances:  pre,
			PostTokenBalances: post,
		},
	}
}

// buy registers a transaction in which wallet's balance of mint goes 0 -> amount.
func buy(rpc *stub.RPCClient, wallet, sig, mint string, blockTime int64) {
	rpc.AddTransaction(tx(sig, blockTime, nil, []solana.TokenBalance{bal(mint, wallet, "100")}))
}

func sigInfo(sig string, blockTime int64) solana.SignatureInfo {
	return solana.SignatureInfo{Signature: sig, BlockTime: i64(blockTime)}
}
