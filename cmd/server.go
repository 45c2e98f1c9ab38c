// Server = intake/status API + reconciliation driver + scheduled bonus
// passes over a shared sqlite store. All components are configured via
// environment variables or a config file (strings!).

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/alert"
	"github.com/docknetwork/migration-go/api"
	"github.com/docknetwork/migration-go/bonus"
	"github.com/docknetwork/migration-go/etherman"
	"github.com/docknetwork/migration-go/intake"
	"github.com/docknetwork/migration-go/mainnetman"
	"github.com/docknetwork/migration-go/migration"
	"github.com/docknetwork/migration-go/state"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type MigrationServerConfig struct {
	// Ethereum side
	EthRpcUrl             string
	TokenContractAddr     string // deployed ERC-20 contract
	VaultAddr             string // custodial vault receiving migrating tokens
	RequiredConfirmations uint64
	PollIntervalSec       int
	VerifyConcurrency     int

	// state side
	DbFilePath string

	// mainnet side: the signer sidecar holding the migrator key
	MainnetRpcUrl string

	// intake side
	NetworkType     string // "main" or "test", picks the address prefix
	BonusEndsAt     time.Time
	MigrationEndsAt time.Time
	Blacklist       []string

	// Http side
	HttpIp         string // eg. 0.0.0.0
	HttpPort       string // eg. 8080
	CorsOrigin     string
	StatsAdminName string
	StatsAdminKey  string

	// bonus side; pools are decimal strings of mainnet smallest units
	BonusEnabled        bool
	SwapPool            string
	VestingPool         string
	MigrationStartBlock uint64
	EthBlockTimeSec     int
	MainnetBlockTimeSec int
	BonusBatchSize      int
	BonusCalcCron       string // cron spec, eg. "0 * * * *"
	BonusDispCron       string

	// alerting; empty SendGridApiKey disables email alarms
	SendGridApiKey       string
	AlertFromEmail       string
	AlertToEmail         string
	MinAllowedMigrations int
	MinBalance           string
}

// MigrationServer holds the objects that consist of the migration
// service.
type MigrationServer struct {
	MyStateDb *state.StateDB
	MyEth     *etherman.Etherman
	MyLedger  mainnetman.LedgerClient
	MyAlerter alert.Alerter
	MyIntake  *intake.Handler
	MyDriver  *migration.Driver
	MyApi     *api.HttpServer
	MyCron    *cron.Cron
}

func networkPrefix(networkType string) byte {
	if networkType == "test" {
		return intake.TestnetPrefix
	}
	return intake.MainnetPrefix
}

func parsePool(raw, name string) (*big.Int, error) {
	pool, ok := new(big.Int).SetString(raw, 10)
	if !ok || pool.Sign() < 0 {
		return nil, fmt.Errorf("bad %s pool amount %q", name, raw)
	}
	return pool, nil
}

// NewMigrationServer wires every component and turns them on.
// ctx cancels the long running loops; wg waits for them to finish.
func NewMigrationServer(msc *MigrationServerConfig, ctx context.Context, wg *sync.WaitGroup) (*MigrationServer, error) {
	// state store
	sqldb, err := sql.Open("sqlite3", msc.DbFilePath)
	if err != nil {
		logger.Fatalf("failed to open db file: %v", err)
		return nil, err
	}
	myStateDb, err := state.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("failed to create state db: %v", err)
		return nil, err
	}

	// ethereum side
	myEth, err := etherman.NewEtherman(&etherman.Config{
		URL:                   msc.EthRpcUrl,
		TokenContractAddress:  ethcommon.HexToAddress(msc.TokenContractAddr),
		VaultAddress:          ethcommon.HexToAddress(msc.VaultAddr),
		RequiredConfirmations: msc.RequiredConfirmations,
	})
	if err != nil {
		logger.Fatalf("failed to create etherman: %v", err)
		return nil, err
	}

	// mainnet side
	myLedger := mainnetman.NewRPCLedger(&mainnetman.RPCConfig{URL: msc.MainnetRpcUrl})

	// alerting
	var myAlerter alert.Alerter = &alert.NopAlerter{}
	if msc.SendGridApiKey != "" {
		minBalance, ok := new(big.Int).SetString(msc.MinBalance, 10)
		if !ok {
			minBalance = new(big.Int)
		}
		myAlerter = alert.NewEmailAlerter(&alert.Config{
			SendGridAPIKey:       msc.SendGridApiKey,
			FromEmail:            msc.AlertFromEmail,
			ToEmail:              msc.AlertToEmail,
			MinAllowedMigrations: msc.MinAllowedMigrations,
			MinBalance:           minBalance,
		})
	}

	// intake + http api
	myIntake := intake.NewHandler(myStateDb, &intake.Config{
		NetworkPrefix:   networkPrefix(msc.NetworkType),
		BonusEndsAt:     msc.BonusEndsAt,
		MigrationEndsAt: msc.MigrationEndsAt,
		Blacklist:       msc.Blacklist,
	})
	myApi := api.NewHttpServer(&api.Config{
		ServerIP:   msc.HttpIp,
		ServerPort: msc.HttpPort,
		CORSOrigin: msc.CorsOrigin,
		StatsUser:  msc.StatsAdminName,
		StatsKey:   msc.StatsAdminKey,
	}, myIntake, myStateDb)
	go func() {
		if err := myApi.Run(); err != nil {
			logger.Fatalf("api server stopped: %v", err)
		}
	}()

	// reconciliation driver
	myDriver := migration.NewDriver(myStateDb, myEth, myLedger, myAlerter, &migration.Config{
		PollInterval:      time.Duration(msc.PollIntervalSec) * time.Second,
		VerifyConcurrency: msc.VerifyConcurrency,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		myDriver.Run(ctx)
	}()

	server := &MigrationServer{
		MyStateDb: myStateDb,
		MyEth:     myEth,
		MyLedger:  myLedger,
		MyAlerter: myAlerter,
		MyIntake:  myIntake,
		MyDriver:  myDriver,
		MyApi:     myApi,
	}

	if msc.BonusEnabled {
		myCron, err := setupBonusSchedule(msc, server, ctx, wg)
		if err != nil {
			return nil, err
		}
		server.MyCron = myCron
	}

	return server, nil
}

// setupBonusSchedule runs the two bonus stages on their cron specs.
// The calculation pass itself refuses to fire more than once or before
// every initial migration is done, so the recurring schedule only
// decides how soon after that point the split happens. The dispatch
// pass drains calculated rows batch by batch on its own schedule.
func setupBonusSchedule(msc *MigrationServerConfig, server *MigrationServer, ctx context.Context, wg *sync.WaitGroup) (*cron.Cron, error) {
	swapPool, err := parsePool(msc.SwapPool, "swap")
	if err != nil {
		return nil, err
	}
	vestingPool, err := parsePool(msc.VestingPool, "vesting")
	if err != nil {
		return nil, err
	}

	bonusCfg := &bonus.Config{
		SwapPool:            swapPool,
		VestingPool:         vestingPool,
		MigrationStartBlock: msc.MigrationStartBlock,
		EthBlockTimeSec:     msc.EthBlockTimeSec,
		MainnetBlockTimeSec: msc.MainnetBlockTimeSec,
		BatchSize:           msc.BonusBatchSize,
	}
	if err := bonusCfg.Validate(); err != nil {
		return nil, fmt.Errorf("bad bonus configuration: %w", err)
	}
	pass := bonus.NewPass(server.MyStateDb, server.MyLedger, server.MyAlerter, bonusCfg)

	myCron := cron.New()
	if _, err := myCron.AddFunc(msc.BonusCalcCron, func() {
		if _, err := pass.CalculateAndStore(ctx); err != nil {
			switch {
			case errors.Is(err, bonus.ErrMigrationsIncomplete):
				// deferred; logged by the pass itself
			case errors.Is(err, bonus.ErrBonusesAlreadyCalculated):
				// one-shot already happened, later firings are no-ops
			default:
				logger.WithError(err).Error("bonus calculation pass failed")
			}
		}
	}); err != nil {
		return nil, fmt.Errorf("bad bonus calculation cron spec %q: %w", msc.BonusCalcCron, err)
	}
	if _, err := myCron.AddFunc(msc.BonusDispCron, func() {
		if _, err := pass.DispatchAndStore(ctx); err != nil {
			logger.WithError(err).Error("bonus dispatch pass failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("bad bonus dispatch cron spec %q: %w", msc.BonusDispCron, err)
	}
	myCron.Start()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		<-myCron.Stop().Done()
	}()
	return myCron, nil
}

// Create, then start the migration server and wait.
// Press Ctrl-C to kill the server.
func StartMigrationServerAndWait(msc *MigrationServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewMigrationServer(msc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create migration server: %v", err)
		return
	}

	wg.Wait()
}
