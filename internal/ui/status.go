package ui

import (
	"fmt"

	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// StatusLine renders a transaction status; idle renders as "".
func StatusLine(s workflow.Status) string {
	var line string
	switch s.Kind {
	case workflow.StatusPending:
		line = Info(s.Message)
	case workflow.StatusSuccess:
		// success messages carry their own mark
		line = StyleSuccess.Render(s.Message)
	case workflow.StatusError:
		line = Err(s.Message)
	default:
		return ""
	}
	if s.ExplorerURL != "" {
		line += "\n  " + Meta(s.ExplorerURL)
	}
	return line
}

// StateView renders the session as a key/value block.
func StateView(s app.State, networks *chain.Registry) string {
	pairs := [][2]string{{"Environment", s.Env.String()}}

	if !s.Conn.Connected() {
		pairs = append(pairs, [2]string{"Wallet", "not connected"})
	} else {
		pairs = append(pairs,
			[2]string{"Wallet", s.Conn.Label},
			[2]string{"Account", s.Conn.ShortAccount()},
			[2]string{"Network", networkLabel(s.Conn.ChainID, networks)},
		)
	}

	if s.Contract != "" {
		pairs = append(pairs, [2]string{"Contract", s.Contract})
	}
	if s.Token != nil {
		pairs = append(pairs,
			[2]string{"Token", fmt.Sprintf("%s (%s)", s.Token.Name, s.Token.Symbol)},
			[2]string{"Balance", s.Token.Balance + " " + s.Token.Symbol},
		)
	}
	if s.Amount != "" {
		pairs = append(pairs, [2]string{"Amount", s.Amount})
	}

	out := KeyValueBlock("w3burn", pairs)
	if s.Warning != "" {
		out += "\n" + Warn(s.Warning)
	}
	if line := StatusLine(s.Status); line != "" {
		out += "\n" + line
	}
	return out
}

func networkLabel(id int64, networks *chain.Registry) string {
	if networks != nil {
		if n, err := networks.GetByChainID(id); err == nil {
			return n.Label()
		}
	}
	return fmt.Sprintf("chain %d (unsupported)", id)
}

// HoldingsTable renders token holdings.
func HoldingsTable(hs []providers.Holding) string {
	t := NewTable([]Column{
		{Title: "Symbol", Width: 10},
		{Title: "Name", Width: 24},
		{Title: "Balance", Width: 22, Right: true},
		{Title: "Contract", Width: 13},
	})
	for _, h := range hs {
		t.AddRow(Row{h.Symbol, h.Name, h.FormattedBalance, TruncateAddr(h.Address.Hex())})
	}
	return t.Render()
}
