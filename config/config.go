// Package config resolves operator settings from a YAML file, PU2_*
// environment variables and built-in defaults. Deployment targets live
// in named profiles so switching networks is a one-flag affair.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"

	"github.com/jetsharklambo/pu2-toolkit/chain"
	"github.com/jetsharklambo/pu2-toolkit/claims"
)

// Config carries everything the toolkit needs to reach one deployment
// of the game contract.
type Config struct {
	Profile  string
	RPCURL   string
	Contract common.Address

	// Key signs game actions. Nil is valid for read-only use.
	Key *ecdsa.PrivateKey

	ScanWindow     uint64
	ScanWorkers    int
	ScanRate       float64
	ConfirmTimeout time.Duration

	HTTPAddr string
	LogLevel string
}

// Load reads the optional config file, applies environment overrides
// and resolves the deployment profile. A non-empty profile argument
// beats the profile named in the file.
func Load(file, profile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("scan_window", claims.DefaultWindow)
	v.SetDefault("scan_workers", claims.DefaultWorkers)
	v.SetDefault("scan_rate", float64(claims.DefaultRate))
	v.SetDefault("confirm_timeout", chain.DefaultConfirmTimeout)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PU2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if profile == "" {
		profile = v.GetString("profile")
	}

	cfg := &Config{
		Profile:        profile,
		RPCURL:         v.GetString("rpc_url"),
		ScanWindow:     v.GetUint64("scan_window"),
		ScanWorkers:    v.GetInt("scan_workers"),
		ScanRate:       v.GetFloat64("scan_rate"),
		ConfirmTimeout: v.GetDuration("confirm_timeout"),
		HTTPAddr:       v.GetString("http_addr"),
		LogLevel:       v.GetString("log_level"),
	}

	contract := v.GetString("contract")
	if profile != "" {
		if !v.IsSet("profiles." + profile) {
			return nil, fmt.Errorf("profile %q is not defined", profile)
		}
		if s := v.GetString("profiles." + profile + ".rpc_url"); s != "" {
			cfg.RPCURL = s
		}
		if s := v.GetString("profiles." + profile + ".contract"); s != "" {
			contract = s
		}
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc_url is required")
	}
	if contract == "" {
		return nil, fmt.Errorf("contract is required")
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("contract is not a valid address: %q", contract)
	}
	cfg.Contract = common.HexToAddress(contract)

	if raw := v.GetString("private_key"); raw != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private_key: %w", err)
		}
		cfg.Key = key
	}
	return cfg, nil
}

// RequireKey returns the signing key or explains how to provide one.
func (c *Config) RequireKey() (*ecdsa.PrivateKey, error) {
	if c.Key == nil {
		return nil, fmt.Errorf("private_key is required for this command (set PU2_PRIVATE_KEY)")
	}
	return c.Key, nil
}
