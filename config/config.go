package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/btorressz/otc-pool/native/otc"
)

// Config captures the daemon's deployment settings.
type Config struct {
	ListenAddress string      `toml:"ListenAddress"`
	DataDir       string      `toml:"DataDir"`
	Environment   string      `toml:"Environment"`
	Genesis       GenesisPool `toml:"GenesisPool"`
}

// GenesisPool describes the pool the daemon ensures exists on startup.
// Addresses are 20-byte hex strings; MinSwapAmount is a decimal string so
// large notionals survive TOML's integer range.
type GenesisPool struct {
	Authority         string   `toml:"Authority"`
	Nonce             string   `toml:"Nonce"`
	Treasury          string   `toml:"Treasury"`
	MaxPartners       uint8    `toml:"MaxPartners"`
	FeeBps            uint32   `toml:"FeeBps"`
	MinSwapAmount     string   `toml:"MinSwapAmount"`
	MaxExpirationSecs int64    `toml:"MaxExpirationSecs"`
	WhitelistedMints  []string `toml:"WhitelistedMints"`
	Partners          []string `toml:"Partners"`
}

// Load reads and validates the configuration at the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	return c.Genesis.Validate()
}

// Validate checks the genesis pool definition.
func (g *GenesisPool) Validate() error {
	if _, err := ParseAddress(g.Authority); err != nil {
		return fmt.Errorf("config: Authority: %w", err)
	}
	if _, err := ParseAddress(g.Treasury); err != nil {
		return fmt.Errorf("config: Treasury: %w", err)
	}
	if g.FeeBps > otc.FeeDenominator {
		return fmt.Errorf("config: FeeBps %d out of range", g.FeeBps)
	}
	if g.MaxExpirationSecs <= 0 {
		return fmt.Errorf("config: MaxExpirationSecs must be positive")
	}
	if _, err := g.MinAmount(); err != nil {
		return err
	}
	if len(g.WhitelistedMints) == 0 {
		return fmt.Errorf("config: at least one whitelisted mint required")
	}
	if len(g.WhitelistedMints) > otc.MaxWhitelistCapacity {
		return fmt.Errorf("config: whitelist exceeds allocation of %d", otc.MaxWhitelistCapacity)
	}
	if len(g.Partners) > int(g.MaxPartners) {
		return fmt.Errorf("config: partner list exceeds MaxPartners")
	}
	for _, partner := range g.Partners {
		if _, err := ParseAddress(partner); err != nil {
			return fmt.Errorf("config: Partners: %w", err)
		}
	}
	return nil
}

// MinAmount parses the configured minimum swap amount.
func (g *GenesisPool) MinAmount() (*big.Int, error) {
	trimmed := strings.TrimSpace(g.MinSwapAmount)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("config: MinSwapAmount %q is not a non-negative integer", g.MinSwapAmount)
	}
	return amount, nil
}

// NonceBytes derives the 32-byte initialization nonce from the configured
// string. An empty nonce is valid and maps to the zero nonce.
func (g *GenesisPool) NonceBytes() [32]byte {
	var nonce [32]byte
	copy(nonce[:], strings.TrimSpace(g.Nonce))
	return nonce
}

// ParseAddress decodes a 20-byte hex address, tolerating a 0x prefix.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", raw, len(addr), len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}
