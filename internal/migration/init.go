package migration

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/contracts"
	"github.com/storagesync/storagesync/internal/errs"
)

// Init resolves deployer credentials, attaches to an existing relay if
// configured, and — if a proxy address is given — reads back its
// embedded source/logic/relay addresses and the relay's migration flag
// (spec.md §4.F init()).
func (e *Engine) Init(ctx context.Context) error {
	if e.state != Uninitialized {
		return errs.New(errs.State, "init requires the Uninitialized state", "state", e.state.String())
	}

	chainID, err := e.Target.ChainID(ctx)
	if err != nil {
		return err
	}
	signer, err := e.cfg.ResolveSigner(chainID, e.Target.RPCClient())
	if err != nil {
		return err
	}
	e.signer = signer

	if e.cfg.RelayAddress != (common.Address{}) {
		relay, err := contracts.NewRelay(e.cfg.RelayAddress, e.Target.EthClient())
		if err != nil {
			return err
		}
		e.relay = relay
	}

	if e.cfg.ProxyAddress != (common.Address{}) {
		proxy, err := contracts.NewProxy(e.cfg.ProxyAddress, e.Target.EthClient())
		if err != nil {
			return err
		}
		e.proxy = proxy

		if e.relay == nil {
			return errs.New(errs.Config, "proxyAddress configured without a relayAddress")
		}

		embeddedSource, err := proxy.GetSourceAddress(ctx)
		if err != nil {
			return err
		}
		if embeddedSource != e.cfg.SourceAddress {
			return errs.New(errs.Config, "proxy's embedded source address does not match configured sourceAddress", "embedded", embeddedSource, "configured", e.cfg.SourceAddress)
		}
		embeddedLogic, err := proxy.GetLogicAddress(ctx)
		if err != nil {
			return err
		}
		e.logic = embeddedLogic
		embeddedRelay, err := proxy.GetRelayAddress(ctx)
		if err != nil {
			return err
		}
		if embeddedRelay != e.relay.Address {
			return errs.New(errs.Config, "proxy's embedded relay address does not match the attached relay", "embedded", embeddedRelay, "attached", e.relay.Address)
		}

		migrated, err := e.relay.GetMigrationState(ctx, proxy.Address)
		if err != nil {
			return err
		}
		if migrated {
			e.state = Migrated
			e.logger.Info("attached to an already-migrated proxy", "proxy", proxy.Address)
			return nil
		}
	}

	e.state = Initialized
	e.logger.Info("engine initialized", "relay", e.RelayAddress(), "proxy", e.ProxyAddress())
	return nil
}
