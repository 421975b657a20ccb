// Package env classifies the hosting context into the wallet environment the
// connector should use. Classification is a pure function of a Probe so it can
// be evaluated on demand and tested exhaustively.
package env

import (
	"net/url"
	"strings"
)

// Variant is the detected wallet environment.
type Variant int

const (
	None Variant = iota
	HostedSmartWallet
	BrowserExtensionWallet
	EmbeddedHostWallet
)

func (v Variant) String() string {
	switch v {
	case HostedSmartWallet:
		return "hosted-smart-wallet"
	case BrowserExtensionWallet:
		return "extension-wallet"
	case EmbeddedHostWallet:
		return "embedded-host-wallet"
	default:
		return "none"
	}
}

// Well-known host markers.
const (
	GlobalBaseApp     = "baseApp"
	GlobalBaseAppFlag = "__BASE_APP__"
	GlobalCoinbaseSDK = "CoinbaseSDK"
)

var (
	hostGlobals   = []string{GlobalBaseApp, GlobalBaseAppFlag, GlobalCoinbaseSDK}
	hostHostnames = []string{"base.org", "base.xyz"}
	hostUAMarkers = []string{"baseapp", "base-"}
)

// ProviderFlags are the capability flags a wallet provider advertises.
type ProviderFlags struct {
	Name              string
	IsCoinbaseWallet  bool
	IsCoinbaseBrowser bool
}

// InjectedProvider is the primary provider plus, when several wallets are
// installed side by side, the full provider list with the primary first.
type InjectedProvider struct {
	ProviderFlags
	Providers []ProviderFlags
}

// All returns every known provider, primary first.
func (ip *InjectedProvider) All() []ProviderFlags {
	if len(ip.Providers) > 0 {
		return ip.Providers
	}
	return []ProviderFlags{ip.ProviderFlags}
}

// Probe is the ambient context the classifier looks at.
type Probe struct {
	UserAgent string
	Globals   map[string]bool
	Hostname  string
	HasParent bool
	Injected  *InjectedProvider
}

// Classify returns the wallet environment for p. The first matching rule wins:
// host markers, then a coinbase-capable provider, then a parent host, else None.
func Classify(p Probe) Variant {
	switch {
	case hasHostMarker(p):
		return HostedSmartWallet
	case CoinbaseProvider(p.Injected) >= 0:
		return BrowserExtensionWallet
	case p.HasParent:
		return EmbeddedHostWallet
	default:
		return None
	}
}

// CoinbaseProvider returns the index into ip.All() of the coinbase-capable
// provider, or -1 if there is none.
func CoinbaseProvider(ip *InjectedProvider) int {
	if ip == nil {
		return -1
	}
	if ip.IsCoinbaseWallet {
		return 0
	}
	for i, p := range ip.Providers {
		if p.IsCoinbaseWallet || p.IsCoinbaseBrowser {
			return i
		}
	}
	return -1
}

func hasHostMarker(p Probe) bool {
	for _, g := range hostGlobals {
		if p.Globals[g] {
			return true
		}
	}
	host := strings.ToLower(p.Hostname)
	for _, h := range hostHostnames {
		if host != "" && strings.Contains(host, h) {
			return true
		}
	}
	ua := strings.ToLower(p.UserAgent)
	for _, m := range hostUAMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// Options feeds FromEnvironment with values that come from config rather
// than the process environment.
type Options struct {
	UserAgent  string
	Origin     string
	HostSocket string
	Providers  []ProviderFlags
}

// Environment variables mapped onto host globals.
var globalEnv = map[string]string{
	"BASE_APP":     GlobalBaseApp,
	"__BASE_APP__": GlobalBaseAppFlag,
	"COINBASE_SDK": GlobalCoinbaseSDK,
}

// FromEnvironment assembles a Probe. lookup is usually os.LookupEnv.
func FromEnvironment(lookup func(string) (string, bool), opts Options) Probe {
	p := Probe{
		UserAgent: opts.UserAgent,
		Globals:   make(map[string]bool),
		HasParent: opts.HostSocket != "",
	}
	if ua, ok := lookup("W3BURN_USER_AGENT"); ok && ua != "" {
		p.UserAgent = ua
	}
	for name, global := range globalEnv {
		if v, ok := lookup(name); ok && truthy(v) {
			p.Globals[global] = true
		}
	}
	if opts.Origin != "" {
		if u, err := url.Parse(opts.Origin); err == nil {
			p.Hostname = u.Hostname()
		}
	}
	if len(opts.Providers) > 0 {
		ip := &InjectedProvider{ProviderFlags: opts.Providers[0]}
		if len(opts.Providers) > 1 {
			ip.Providers = append([]ProviderFlags(nil), opts.Providers...)
		}
		p.Injected = ip
	}
	return p
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
