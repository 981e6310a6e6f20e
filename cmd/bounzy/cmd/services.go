package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/engine/rest"
	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
	"github.com/bounzy/bounzy-go/module/fhe/relayer"
	"github.com/bounzy/bounzy-go/module/metrics"
	storage "github.com/bounzy/bounzy-go/storage/badger"
)

// services holds everything a command needs to talk to the contract.
type services struct {
	backend      *ethclient.Client
	db           *badger.DB
	gateway      *contract.Client
	adapter      *fhe.Adapter
	orchestrator *lifecycle.Orchestrator
}

type serviceMetrics struct {
	lifecycle module.LifecycleMetrics
	relayer   module.RelayerMetrics
}

func noopMetrics() serviceMetrics {
	noop := metrics.NewNoopCollector()
	return serviceMetrics{lifecycle: noop, relayer: noop}
}

func initServices(ctx context.Context, m serviceMetrics) (*services, error) {
	signer, err := conf.Signer()
	if err != nil {
		return nil, fmt.Errorf("could not load account: %w", err)
	}

	backend, err := ethclient.DialContext(ctx, conf.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", conf.Chain.RPCURL, err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("could not read chain id: %w", err)
	}
	if chainID.Cmp(conf.Chain.ChainID) != 0 {
		backend.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, configured chain is %s", chainID, conf.Chain.ChainID)
	}

	gateway, err := contract.NewClient(log, conf.Transactions, backend, conf.Chain.ContractAddress, signer)
	if err != nil {
		backend.Close()
		return nil, err
	}

	db, err := storage.InitDB(conf.Storage.DataDir)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("could not open activity journal: %w", err)
	}

	adapter := fhe.NewAdapter(log, m.relayer, relayer.NewFactory(log, conf.Relayer.Config), conf.Chain.ContractAddress, conf.Relayer.InitTimeout)
	orchestrator, err := lifecycle.New(log, conf.Lifecycle, gateway, adapter, storage.NewActivities(db), m.lifecycle)
	if err != nil {
		backend.Close()
		_ = db.Close()
		return nil, err
	}

	log.Debug().
		Str("account", signer.Address().Hex()).
		Str("contract", conf.Chain.ContractAddress.Hex()).
		Msg("client ready")

	return &services{
		backend:      backend,
		db:           db,
		gateway:      gateway,
		adapter:      adapter,
		orchestrator: orchestrator,
	}, nil
}

func (s *services) Close() {
	s.backend.Close()
	if err := s.db.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close activity journal")
	}
}

// mustInitServices is used by the one-shot commands.
func mustInitServices(ctx context.Context) *services {
	s, err := initServices(ctx, noopMetrics())
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize client")
	}
	return s
}

// prettyPrint writes v as indented JSON to stdout.
func prettyPrint(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("could not print result")
	}
}

func printReceipt(receipt *contract.Receipt) {
	var r rest.Receipt
	r.Build(receipt)
	prettyPrint(r)
}

// fatal logs err with its kind and exits.
func fatal(err error, msg string) {
	log.Fatal().Err(err).Str("kind", string(lifecycle.Classify(err))).Msg(msg)
}
