// Command node runs a single Neo N3 full-node peer: ledger, mempool,
// P2P relay, and (given a validator key) dBFT consensus participation.
// Wallet/NEP-6 key management is explicitly out of scope;
// a validator key is supplied directly as a hex-encoded secp256r1
// scalar.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/n3fullnode/neofull/pkg/config"
	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/node"
)

func main() {
	app := cli.NewApp()
	app.Name = "node"
	app.Usage = "run a Neo N3 full node"
	app.Version = config.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the node's YAML configuration file",
			Value: "./config/protocol.mainnet.yml",
		},
		cli.StringFlag{
			Name:  "seed, s",
			Usage: "comma-separated list of seed peer addresses, host:port",
		},
		cli.StringFlag{
			Name:  "validator-key",
			Usage: "hex-encoded secp256r1 private key; enables consensus participation",
		},
	}
	app.Action = runNode

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(ctx *cli.Context) error {
	cfg, err := config.LoadFile(ctx.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("loading configuration: %w", err), 1)
	}

	log, err := newLogger(cfg.LogPath)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("initializing logger: %w", err), 1)
	}
	defer func() { _ = log.Sync() }()

	var validatorKey *keys.PrivateKey
	if hexKey := ctx.String("validator-key"); hexKey != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("decoding validator key: %w", err), 1)
		}
		validatorKey, err = keys.NewPrivateKeyFromBytes(raw, keys.Secp256r1)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("parsing validator key: %w", err), 1)
		}
	}

	n, err := node.New(cfg, validatorKey, log)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("constructing node: %w", err), 1)
	}

	seeds := splitSeeds(ctx.String("seed"))
	if len(seeds) == 0 {
		seeds = cfg.ProtocolConfiguration.SeedList
	}
	if err := n.Start(seeds); err != nil {
		return cli.NewExitError(fmt.Errorf("starting node: %w", err), 1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	n.Shutdown()
	return nil
}

func splitSeeds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newLogger builds a production zap logger, writing to stdout unless a
// LogPath is configured.
func newLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if path != "" {
		cfg.OutputPaths = []string{path}
	}
	return cfg.Build()
}
