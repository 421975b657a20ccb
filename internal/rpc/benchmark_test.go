package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evmRPCServer creates an httptest server that responds to eth_blockNumber
// after delay.
func evmRPCServer(t *testing.T, blockNum uint64, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"0x%x"}`, blockNum)
	}))
}

func TestBenchmarkPreservesOrder(t *testing.T) {
	a := evmRPCServer(t, 100, 0)
	defer a.Close()
	b := evmRPCServer(t, 101, 0)
	defer b.Close()

	out := Benchmark(context.Background(), []string{a.URL, "http://127.0.0.1:19994", b.URL})
	require.Len(t, out, 3)

	assert.Equal(t, a.URL, out[0].URL)
	assert.True(t, out[0].Healthy)
	assert.Equal(t, uint64(100), out[0].BlockNumber)

	assert.False(t, out[1].Healthy)

	assert.Equal(t, b.URL, out[2].URL)
	assert.Equal(t, uint64(101), out[2].BlockNumber)
}

func TestBestSingleURL(t *testing.T) {
	url, err := Best(context.Background(), []string{"https://only.rpc.example.com"}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, "https://only.rpc.example.com", url)
}

func TestBestNoURLs(t *testing.T) {
	_, err := Best(context.Background(), nil, AlgorithmFastest)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestBestPicksFastest(t *testing.T) {
	slow := evmRPCServer(t, 500, 80*time.Millisecond)
	defer slow.Close()
	fast := evmRPCServer(t, 500, 0)
	defer fast.Close()

	url, err := Best(context.Background(), []string{slow.URL, fast.URL}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, fast.URL, url)
}

func TestBestSkipsDeadEndpoint(t *testing.T) {
	live := evmRPCServer(t, 500, 0)
	defer live.Close()

	url, err := Best(context.Background(), []string{"http://127.0.0.1:19995", live.URL}, AlgorithmFailover)
	require.NoError(t, err)
	assert.Equal(t, live.URL, url)
}
