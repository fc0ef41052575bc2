package evm

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenAddr = "0xAAAA00000000000000000000000000000000AAAA"

type fakeFilterer struct {
	head    uint64
	logs    []types.Log
	err     error
	queries []ethereum.FilterQuery
}

func (f *fakeFilterer) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	// Every chunk returns the same canned logs; callers dedupe.
	return f.logs, nil
}

func (f *fakeFilterer) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func transferLog(to common.Address) types.Log {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	return types.Log{
		Address: common.HexToAddress(tokenAddr),
		Topics:  []common.Hash{transferTopic, common.HexToHash(from.Hex()), common.HexToHash(to.Hex())},
	}
}

func TestHolderAddressesCollectsDistinctRecipients(t *testing.T) {
	alice := common.HexToAddress("0xA11CE00000000000000000000000000000000001")
	bob := common.HexToAddress("0xB0B0000000000000000000000000000000000002")

	anonymous := types.Log{Topics: []common.Hash{transferTopic}} // missing indexed args
	burn := transferLog(common.Address{})

	client := &fakeFilterer{logs: []types.Log{
		transferLog(alice),
		transferLog(bob),
		transferLog(alice), // duplicate
		burn,
		anonymous,
	}}

	scanner := NewScannerWithClient(client)
	holders, err := scanner.HolderAddresses(context.Background(), tokenAddr, 0, 100)
	require.NoError(t, err)

	sort.Strings(holders)
	assert.Equal(t, []string{
		"0xa11ce00000000000000000000000000000000001",
		"0xb0b0000000000000000000000000000000000002",
	}, holders)
}

func TestHolderAddressesChunksBlockRange(t *testing.T) {
	client := &fakeFilterer{}
	scanner := NewScannerWithClient(client)
	scanner.chunkSize = 100

	_, err := scanner.HolderAddresses(context.Background(), tokenAddr, 0, 250)
	require.NoError(t, err)

	require.Len(t, client.queries, 3)
	assert.Equal(t, uint64(0), client.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(99), client.queries[0].ToBlock.Uint64())
	assert.Equal(t, uint64(200), client.queries[2].FromBlock.Uint64())
	assert.Equal(t, uint64(250), client.queries[2].ToBlock.Uint64(), "last chunk clamps to toBlock")

	q := client.queries[0]
	assert.Equal(t, []common.Address{common.HexToAddress(tokenAddr)}, q.Addresses)
	assert.Equal(t, transferTopic, q.Topics[0][0])
}

func TestHolderAddressesResolvesHeadWhenToBlockZero(t *testing.T) {
	client := &fakeFilterer{head: 42}
	scanner := NewScannerWithClient(client)

	_, err := scanner.HolderAddresses(context.Background(), tokenAddr, 0, 0)
	require.NoError(t, err)

	require.Len(t, client.queries, 1)
	assert.Equal(t, uint64(42), client.queries[0].ToBlock.Uint64())
}

func TestHolderAddressesAnchorsToScanWindow(t *testing.T) {
	client := &fakeFilterer{head: 500000}
	scanner := NewScannerWithClient(client)
	scanner.chunkSize = 100000

	_, err := scanner.HolderAddresses(context.Background(), tokenAddr, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, client.queries)
	assert.Equal(t, uint64(400000), client.queries[0].FromBlock.Uint64(), "open-ended scans cover the trailing window only")

	// An explicit fromBlock bypasses the window.
	client.queries = nil
	_, err = scanner.HolderAddresses(context.Background(), tokenAddr, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), client.queries[0].FromBlock.Uint64())

	// Window zero scans from genesis.
	client.queries = nil
	scanner.SetScanWindow(0)
	_, err = scanner.HolderAddresses(context.Background(), tokenAddr, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), client.queries[0].FromBlock.Uint64())
}

func TestHolderAddressesRejectsInvalidToken(t *testing.T) {
	scanner := NewScannerWithClient(&fakeFilterer{})

	_, err := scanner.HolderAddresses(context.Background(), "not-an-address", 0, 10)
	assert.Error(t, err)
}

func TestHolderAddressesPropagatesRPCErrors(t *testing.T) {
	client := &fakeFilterer{err: errors.New("rate limited")}
	scanner := NewScannerWithClient(client)

	_, err := scanner.HolderAddresses(context.Background(), tokenAddr, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
