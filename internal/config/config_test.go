package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/errs"
)

func validConfig() Config {
	c := Defaults()
	c.SourceEndpoint = "https://source.example/rpc"
	c.TargetEndpoint = "https://target.example/rpc"
	c.SourceAddress = common.HexToAddress("0x01")
	c.KeystorePath = "/tmp/keystore"
	return c
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresSourceEndpoint(t *testing.T) {
	c := validConfig()
	c.SourceEndpoint = ""
	if err := c.Validate(); !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config kind error, got %v", err)
	}
}

func TestValidateAcceptsNodeAccountWithoutKeystore(t *testing.T) {
	c := validConfig()
	c.KeystorePath = ""
	c.NodeAccount = common.HexToAddress("0x04")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected nodeAccount to satisfy the signer precondition, got %v", err)
	}
}

func TestValidateRequiresKeystoreOrNodeAccount(t *testing.T) {
	c := validConfig()
	c.KeystorePath = ""
	if err := c.Validate(); !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config kind error when neither keystorePath nor nodeAccount is set, got %v", err)
	}
}

func TestValidateRequiresRelayWhenProxyIsSet(t *testing.T) {
	c := validConfig()
	c.ProxyAddress = common.HexToAddress("0x02")
	if err := c.Validate(); !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config kind error when proxy set without relay, got %v", err)
	}

	c.RelayAddress = common.HexToAddress("0x03")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config once relay is also set, got %v", err)
	}
}

func TestValidateRequiresPositiveBatchAndChunkSize(t *testing.T) {
	c := validConfig()
	c.BatchSize = 0
	if err := c.Validate(); !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config kind error for zero batchSize, got %v", err)
	}

	c = validConfig()
	c.ChunkSize = -1
	if err := c.Validate(); !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config kind error for negative chunkSize, got %v", err)
	}
}

func TestDefaultsMatchSpecDefaults(t *testing.T) {
	d := Defaults()
	if d.BatchSize != DefaultBatchSize || d.ChunkSize != DefaultChunkSize || d.GasLimit != DefaultGasLimit {
		t.Fatalf("defaults do not match the package constants: %+v", d)
	}
	if d.SourceBlockTag != "latest" || d.TargetBlockTag != "latest" {
		t.Fatalf("expected block tags to default to latest, got %+v", d)
	}
}
