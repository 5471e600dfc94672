// Package config loads the node configuration. Values come, by order of
// precedence, from explicit overrides (CLI flags), FHEBALLOT_* environment
// variables, an optional YAML file and the defaults below.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/types"
)

// EnvPrefix is the prefix of the environment variables read by Load. Nested
// keys use underscores, e.g. FHEBALLOT_API_PORT.
const EnvPrefix = "FHEBALLOT"

type Log struct {
	Level  string
	Output string
}

type API struct {
	Host string
	Port int
	// EnableTestInputs exposes the endpoint that encrypts inputs on behalf
	// of the client. Never enable it in production.
	EnableTestInputs bool
}

type Ledger struct {
	ChainID  uint64
	Contract string
	// Candidates are the candidate names, their ids are assigned from 1 in
	// the given order.
	Candidates    []string
	ResultReaders []string
}

type Decryption struct {
	VerifyingContract string
}

type Coprocessor struct {
	InputVerifier string
	// VerifierKey is the hex private key that signs the input proofs. A
	// random key is generated when empty.
	VerifierKey string
}

type Config struct {
	Datadir     string
	Log         Log
	API         API
	Ledger      Ledger
	Decryption  Decryption
	Coprocessor Coprocessor
}

var defaults = map[string]any{
	"datadir":                      filepath.Join(os.Getenv("HOME"), ".fhe-ballot"),
	"log.level":                    log.LogLevelInfo,
	"log.output":                   "stdout",
	"api.host":                     "0.0.0.0",
	"api.port":                     9090,
	"api.enabletestinputs":         false,
	"ledger.chainid":               31337,
	"ledger.contract":              "",
	"ledger.candidates":            []string{},
	"ledger.resultreaders":         []string{},
	"decryption.verifyingcontract": "",
	"coprocessor.inputverifier":    "",
	"coprocessor.verifierkey":      "",
}

// Load reads the configuration. If path is not empty the YAML file is read
// and must exist. Overrides are applied last, keys use the dotted form
// ("api.port").
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Datadir == "" {
		return fmt.Errorf("datadir is required")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d", c.API.Port)
	}
	if !common.IsHexAddress(c.Ledger.Contract) {
		return fmt.Errorf("invalid ledger contract %q", c.Ledger.Contract)
	}
	if c.Decryption.VerifyingContract != "" && !common.IsHexAddress(c.Decryption.VerifyingContract) {
		return fmt.Errorf("invalid decryption verifying contract %q", c.Decryption.VerifyingContract)
	}
	if c.Coprocessor.InputVerifier != "" && !common.IsHexAddress(c.Coprocessor.InputVerifier) {
		return fmt.Errorf("invalid input verifier %q", c.Coprocessor.InputVerifier)
	}
	for _, r := range c.Ledger.ResultReaders {
		if !common.IsHexAddress(r) {
			return fmt.Errorf("invalid result reader %q", r)
		}
	}
	return nil
}

// ContractAddress returns the ledger contract.
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Ledger.Contract)
}

// DecryptionContract returns the contract decryption authorizations are
// signed for. It defaults to the ledger contract.
func (c *Config) DecryptionContract() common.Address {
	if c.Decryption.VerifyingContract == "" {
		return c.ContractAddress()
	}
	return common.HexToAddress(c.Decryption.VerifyingContract)
}

// InputVerifierAddress returns the contract input proofs are signed for. It
// defaults to the ledger contract.
func (c *Config) InputVerifierAddress() common.Address {
	if c.Coprocessor.InputVerifier == "" {
		return c.ContractAddress()
	}
	return common.HexToAddress(c.Coprocessor.InputVerifier)
}

// CandidateSet returns the configured candidates, or the default set.
func (c *Config) CandidateSet() []types.Candidate {
	if len(c.Ledger.Candidates) == 0 {
		return nil
	}
	candidates := make([]types.Candidate, len(c.Ledger.Candidates))
	for i, name := range c.Ledger.Candidates {
		candidates[i] = types.Candidate{ID: uint32(i + 1), Name: strings.TrimSpace(name)}
	}
	return candidates
}

// Readers returns the addresses allowed to decrypt the totals.
func (c *Config) Readers() []common.Address {
	readers := make([]common.Address, len(c.Ledger.ResultReaders))
	for i, r := range c.Ledger.ResultReaders {
		readers[i] = common.HexToAddress(r)
	}
	return readers
}

// Verifier returns the input proof signing key.
func (c *Config) Verifier() (*ethereum.SignKeys, error) {
	k := ethereum.NewSignKeys()
	if c.Coprocessor.VerifierKey == "" {
		log.Warnw("no verifier key configured, generating an ephemeral one")
		return k, k.Generate()
	}
	if err := k.AddHexKey(c.Coprocessor.VerifierKey); err != nil {
		return nil, fmt.Errorf("invalid verifier key: %w", err)
	}
	return k, nil
}
