package providers

// Keys holds the indexer API keys.
type Keys struct {
	Covalent string
	Moralis  string
	Ankr     string
}

// BuildRegistry assembles the holdings providers for chainID in priority
// order:
//
//  1. Covalent, if a key is configured
//  2. Moralis, if a key is configured
//  3. Ankr, free tier, Base mainnet only
//
// Constructors that return nil (missing key or unsupported chain) are
// filtered out.
func BuildRegistry(chainID int64, keys Keys) *Registry {
	var ps []Provider
	if c := NewCovalent(keys.Covalent); c != nil {
		ps = append(ps, c)
	}
	if m := NewMoralis(keys.Moralis); m != nil {
		ps = append(ps, m)
	}
	if a := NewAnkr(chainID, keys.Ankr); a != nil {
		ps = append(ps, a)
	}
	return New(ps...)
}
