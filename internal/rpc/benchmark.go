package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// pingTimeout bounds a single endpoint probe.
const pingTimeout = 5 * time.Second

// Benchmark pings all URLs in parallel. The result order matches urls.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	results := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			latency, block, err := chain.NewEVMClient(url).Ping(pctx)
			results[i] = Endpoint{
				URL:         url,
				Latency:     latency,
				BlockNumber: block,
				Healthy:     err == nil,
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return results
}

// Best benchmarks urls and returns the winner under algo.
// A single URL is returned without probing.
func Best(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	winner, err := NewPicker(algo).Pick(Benchmark(ctx, urls))
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
