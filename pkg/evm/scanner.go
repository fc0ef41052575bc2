package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// transferTopic is the ERC-20 Transfer(address,address,uint256) event signature.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// defaultChunkSize bounds each eth_getLogs range; public RPC endpoints reject
// wide ranges.
const defaultChunkSize uint64 = 5000

// defaultScanWindow bounds a fromBlock==0 scan to the trailing block range.
// A genesis-to-head scan on a mature chain would cost hundreds of thousands
// of eth_getLogs calls per discovery pass.
const defaultScanWindow uint64 = 100_000

// LogFilterer is the subset of the EVM client used by the scanner.
// *ethclient.Client satisfies it.
type LogFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// TransferScanner derives a token's holder set from Transfer logs.
type TransferScanner struct {
	client     LogFilterer
	chunkSize  uint64
	scanWindow uint64
}

// NewScanner dials the EVM RPC endpoint and returns a scanner over it.
func NewScanner(rpcURL string) (*TransferScanner, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM RPC: %w", err)
	}
	return NewScannerWithClient(client), nil
}

// NewScannerWithClient wraps an existing client (tests, shared connections).
func NewScannerWithClient(client LogFilterer) *TransferScanner {
	return &TransferScanner{
		client:     client,
		chunkSize:  defaultChunkSize,
		scanWindow: defaultScanWindow,
	}
}

// SetScanWindow overrides how many trailing blocks a fromBlock==0 scan
// covers. 0 scans from genesis.
func (s *TransferScanner) SetScanWindow(blocks uint64) {
	s.scanWindow = blocks
}

// HolderAddresses scans Transfer logs for the token contract between the two
// block heights (toBlock == 0 means the current head; fromBlock == 0 anchors
// to the trailing scan window rather than genesis) and returns the distinct
// recipient addresses, lowercased. Senders are not subtracted: a wallet that
// ever received the token stays a candidate until a balance check elsewhere
// rules it out.
func (s *TransferScanner) HolderAddresses(ctx context.Context, token string, fromBlock, toBlock uint64) ([]string, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid token address: %s", token)
	}
	contract := common.HexToAddress(token)

	if toBlock == 0 {
		head, err := s.client.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain head: %w", err)
		}
		toBlock = head
	}
	if fromBlock == 0 && s.scanWindow > 0 && toBlock > s.scanWindow {
		fromBlock = toBlock - s.scanWindow
	}

	seen := make(map[string]struct{})

	for start := fromBlock; start <= toBlock; start += s.chunkSize {
		end := start + s.chunkSize - 1
		if end > toBlock {
			end = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{transferTopic}},
		}

		logs, err := s.client.FilterLogs(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to filter logs [%d, %d]: %w", start, end, err)
		}

		for _, lg := range logs {
			// Transfer(from indexed, to indexed, value): topics[2] is the recipient.
			if len(lg.Topics) < 3 {
				continue
			}
			to := common.BytesToAddress(lg.Topics[2].Bytes())
			if to == (common.Address{}) {
				continue // burn
			}
			seen[strings.ToLower(to.Hex())] = struct{}{}
		}
	}

	holders := make([]string, 0, len(seen))
	for addr := range seen {
		holders = append(holders, addr)
	}
	return holders, nil
}
