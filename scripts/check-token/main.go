// check-token: loads an ERC20 token for a set of holders on Base and Base
// Sepolia in parallel and prints a summary table. Useful to sanity-check a
// contract before burning from it.
//
// Run from the module root:
//
//	go run ./scripts/check-token <token> <holder> [holder...]
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/rpc"
	"github.com/Mohsinsiddi/w3burn/internal/token"
)

const rpcTimeout = 12 * time.Second

type result struct {
	network string
	holder  string // short form
	name    string
	balance string
	symbol  string
	err     string
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: check-token <token> <holder> [holder...]")
		os.Exit(2)
	}
	tokenAddr, holders := os.Args[1], os.Args[2:]

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, n := range chain.NewRegistry().All() {
		// Pick the fastest healthy RPC; skip networks that don't respond.
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		url, err := rpc.Best(ctx, n.RPCs, rpc.AlgorithmFastest)
		cancel()
		if err != nil {
			for _, h := range holders {
				results = append(results, result{network: n.Name, holder: shortAddr(h), balance: "—", err: "unreachable"})
			}
			continue
		}
		client := chain.NewEVMClient(url)

		for _, h := range holders {
			wg.Add(1)
			go func(network, holder string) {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
				defer cancel()

				r := result{network: network, holder: shortAddr(holder), balance: "—"}
				if !common.IsHexAddress(holder) {
					r.err = "bad holder address"
				} else if info, err := token.NewSession(client, common.HexToAddress(holder)).Load(ctx, tokenAddr); err != nil {
					r.err = shortErr(err)
				} else {
					r.name, r.symbol, r.balance = info.Name, info.Symbol, info.Balance
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(n.Name, h)
		}
	}

	wg.Wait()
	printTable(results)
}

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.network != b.network {
			return a.network < b.network
		}
		return a.holder < b.holder
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tHOLDER\tTOKEN\tBALANCE\tSYMBOL\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 11)+"\t"+
		strings.Repeat("-", 16)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 12))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.network, r.holder, r.name, r.balance, r.symbol, r.err)
	}
	w.Flush()
}

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}
