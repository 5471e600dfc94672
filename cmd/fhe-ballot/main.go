package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vocdoni/fhe-ballot/api/client"
	"github.com/vocdoni/fhe-ballot/config"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/service"
	"github.com/vocdoni/fhe-ballot/storage"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	app := cli.NewApp()
	app.Name = "fhe-ballot"
	app.Version = "0.1.0"
	app.Compiled = time.Now()
	app.Usage = "confidential ballot ledger with encrypted tallies and a decryption oracle"
	app.UsageText = "fhe-ballot [options] command [command options]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from a YAML file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
		},
		cli.StringFlag{
			Name:  "log-output",
			Usage: "log output (stdout, stderr or a file path)",
		},
	}
	app.Commands = []cli.Command{serveCmd(), statusCmd(), keygenCmd()}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// flagOverrides maps the CLI flags to the configuration keys.
var flagOverrides = map[string]string{
	"log-level":           "log.level",
	"log-output":          "log.output",
	"datadir":             "datadir",
	"host":                "api.host",
	"port":                "api.port",
	"enable-test-inputs":  "api.enabletestinputs",
	"chain-id":            "ledger.chainid",
	"contract":            "ledger.contract",
	"decryption-contract": "decryption.verifyingcontract",
	"input-verifier":      "coprocessor.inputverifier",
	"verifier-key":        "coprocessor.verifierkey",
}

// loadConfig reads the configuration, flags set on the command line take
// precedence over the environment and the config file.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	overrides := map[string]any{}
	for name, key := range flagOverrides {
		switch {
		case ctx.IsSet(name):
			overrides[key] = ctx.String(name)
		case ctx.GlobalIsSet(name):
			overrides[key] = ctx.GlobalString(name)
		}
	}
	if ctx.IsSet("candidates") {
		overrides["ledger.candidates"] = ctx.StringSlice("candidates")
	}
	if ctx.IsSet("result-readers") {
		overrides["ledger.resultreaders"] = ctx.StringSlice("result-readers")
	}
	return config.Load(ctx.GlobalString("config"), overrides)
}

func serveCmd() cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "run the ballot API",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "datadir", Usage: "data directory"},
			cli.StringFlag{Name: "host", Usage: "API listen host"},
			cli.IntFlag{Name: "port", Usage: "API listen port"},
			cli.BoolFlag{Name: "enable-test-inputs", Usage: "expose the input encryption endpoint, never in production"},
			cli.Uint64Flag{Name: "chain-id", Usage: "chain id of the EIP-712 domains"},
			cli.StringFlag{Name: "contract", Usage: "ledger contract address"},
			cli.StringSliceFlag{Name: "candidates", Usage: "candidate names, ids are assigned in order from 1"},
			cli.StringSliceFlag{Name: "result-readers", Usage: "addresses allowed to decrypt the totals"},
			cli.StringFlag{Name: "decryption-contract", Usage: "verifying contract of decryption authorizations"},
			cli.StringFlag{Name: "input-verifier", Usage: "verifying contract of input proofs"},
			cli.StringFlag{Name: "verifier-key", Usage: "hex private key signing the input proofs"},
		},
		Action: serve,
	}
}

func serve(ctx *cli.Context) error {
	conf, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log.Init(conf.Log.Level, conf.Log.Output, nil)

	database, err := metadb.New(db.TypePebble, filepath.Join(conf.Datadir, "db"))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	node, err := service.NewNode(stg, conf)
	if err != nil {
		return err
	}
	apiService := service.NewAPI(node, conf.API.Host, conf.API.Port)
	if err := apiService.Start(context.Background()); err != nil {
		return err
	}
	defer apiService.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	log.Infow("received signal, shutting down", "signal", (<-sig).String())
	return nil
}

func statusCmd() cli.Command {
	return cli.Command{
		Name:  "status",
		Usage: "print the ledger info of a running node",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "url", Value: "http://127.0.0.1:9090", Usage: "API base URL"},
			cli.DurationFlag{Name: "timeout", Value: client.DefaultTimeout, Usage: "timeout of each request"},
			cli.IntFlag{Name: "retries", Value: client.DefaultRetries, Usage: "attempts when the node is unreachable"},
		},
		Action: func(ctx *cli.Context) error {
			api, err := client.New(ctx.String("url"))
			if err != nil {
				return err
			}
			api.SetTimeout(ctx.Duration("timeout"))
			api.SetRetries(ctx.Int("retries"))
			info, err := api.Ledger()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func keygenCmd() cli.Command {
	return cli.Command{
		Name:  "keygen",
		Usage: "generate a secp256k1 key, e.g. for the input proof verifier",
		Action: func(ctx *cli.Context) error {
			k := ethereum.NewSignKeys()
			if err := k.Generate(); err != nil {
				return err
			}
			pub, priv := k.HexString()
			fmt.Printf("address: %s\npublic:  %s\nprivate: %s\n", k.AddressString(), pub, priv)
			return nil
		},
	}
}
