package config

// Config holds all w3burn configuration.
type Config struct {
	NetworkMode   string              `json:"network_mode"   koanf:"network_mode"` // "mainnet" | "testnet"
	DefaultWallet string              `json:"default_wallet" koanf:"default_wallet"`
	RPCAlgorithm  string              `json:"rpc_algorithm"  koanf:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs    map[string][]string `json:"custom_rpcs"    koanf:"custom_rpcs"`

	// WalletProviders are JSON-RPC wallet endpoints in priority order.
	WalletProviders []WalletProvider `json:"wallet_providers" koanf:"wallet_providers"`
	Host            HostConfig       `json:"host"             koanf:"host"`
	AppOrigin       string           `json:"app_origin"       koanf:"app_origin"`
	UserAgent       string           `json:"user_agent"       koanf:"user_agent"`

	Indexer IndexerConfig `json:"indexer" koanf:"indexer"`
	Keyring KeyringConfig `json:"keyring" koanf:"keyring"`

	ReceiptTimeout int `json:"receipt_timeout" koanf:"receipt_timeout"` // seconds
	WatchInterval  int `json:"watch_interval"  koanf:"watch_interval"`  // seconds

	Log    LogConfig    `json:"log"    koanf:"log"`
	Server ServerConfig `json:"server" koanf:"server"`

	// internal: config dir path used for Save()
	configDir string
}

// WalletProvider is a configured wallet endpoint and the flags it
// advertises.
type WalletProvider struct {
	Name              string `json:"name"                          koanf:"name"`
	URL               string `json:"url"                           koanf:"url"`
	IsCoinbaseWallet  bool   `json:"is_coinbase_wallet,omitempty"  koanf:"is_coinbase_wallet"`
	IsCoinbaseBrowser bool   `json:"is_coinbase_browser,omitempty" koanf:"is_coinbase_browser"`
}

// HostConfig describes the embedding host reached over a Unix socket.
type HostConfig struct {
	Socket        string `json:"socket"         koanf:"socket"`
	TrustedOrigin string `json:"trusted_origin" koanf:"trusted_origin"`
}

// IndexerConfig holds the token holdings API keys.
type IndexerConfig struct {
	CovalentKey string `json:"covalent_key,omitempty" koanf:"covalent_key"`
	MoralisKey  string `json:"moralis_key,omitempty"  koanf:"moralis_key"`
	AnkrKey     string `json:"ankr_key,omitempty"     koanf:"ankr_key"`
}

// KeyringConfig selects where signing keys live. An empty backend uses the
// OS keychain; "file" uses an encrypted directory, for headless hosts.
type KeyringConfig struct {
	Backend  string `json:"backend,omitempty" koanf:"backend"`
	Dir      string `json:"dir,omitempty"     koanf:"dir"`
	Password string `json:"-"                 koanf:"password"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `json:"format" koanf:"format"`
	Level  string `json:"level"  koanf:"level"`
}

// ServerConfig configures `w3burn serve`.
type ServerConfig struct {
	Endpoint string `json:"endpoint" koanf:"endpoint"`
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty" koanf:"allowed_origins"`
}
