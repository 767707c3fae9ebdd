package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arkade-os/subsign/internal/config"
	"github.com/arkade-os/subsign/internal/core/application"
	"github.com/arkade-os/subsign/pkg/errors"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "subsign"
	app.Usage = "build and sign substrate transfers with metadata hash checks"
	app.Commands = append(
		app.Commands,
		&digestCommand,
		&buildCommand,
		&getCommand,
		&listCommand,
		&decodeCommand,
	)
	app.Flags = config.Flags

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

type serviceAction func(ctx *cli.Context, svc application.Service) error

// withService loads the config and hands a ready service to the action. The
// service is closed before the process exits with the action's exit code.
func withService(action serviceAction) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg, err := config.LoadConfig(ctx)
		if err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		log.SetLevel(log.Level(cfg.LogLevel))
		log.Debugf("subsign config: %s", cfg)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		svc := cfg.AppService()
		defer svc.Close()

		return action(ctx, svc)
	}
}

var (
	digestCommand = cli.Command{
		Name:   "digest",
		Usage:  "Compute the digest of the current chain metadata",
		Action: withService(computeDigest),
	}
	buildCommand = cli.Command{
		Name:  "build",
		Usage: "Build and sign a balance transfer",
		Flags: []cli.Flag{
			destFlag, amountFlag, nonceFlag, tipFlag, assetIdFlag, mortalPeriodFlag,
			checkMetadataFlag,
		},
		Action: withService(buildTransaction),
	}
	getCommand = cli.Command{
		Name:   "get",
		Usage:  "Show a transaction built before",
		Flags:  []cli.Flag{txIdFlag},
		Action: withService(getTransaction),
	}
	listCommand = cli.Command{
		Name:   "list",
		Usage:  "List the transactions built before, most recent first",
		Action: withService(listTransactions),
	}
	decodeCommand = cli.Command{
		Name:   "decode",
		Usage:  "Decode a signed extrinsic with the extension layout of the chain",
		Flags:  []cli.Flag{txFlag},
		Action: withService(decodeTransaction),
	}
)

func computeDigest(ctx *cli.Context, svc application.Service) error {
	c, cancel := signalContext(ctx.Context)
	defer cancel()

	info, err := svc.ComputeDigest(c)
	if err != nil {
		return failed(err)
	}
	return printJSON(info)
}

func buildTransaction(ctx *cli.Context, svc application.Service) error {
	req, err := parseBuildRequest(ctx)
	if err != nil {
		return cli.Exit(err, errors.INVALID_REQUEST.ExitCode)
	}

	c, cancel := signalContext(ctx.Context)
	defer cancel()

	tx, buildErr := svc.BuildTransaction(c, *req)
	if buildErr != nil {
		return failed(buildErr)
	}
	return printJSON(tx)
}

func getTransaction(ctx *cli.Context, svc application.Service) error {
	tx, err := svc.GetTransaction(ctx.Context, ctx.String(txIdFlagName))
	if err != nil {
		return failed(err)
	}
	return printJSON(tx)
}

func listTransactions(ctx *cli.Context, svc application.Service) error {
	txs, err := svc.ListTransactions(ctx.Context)
	if err != nil {
		return failed(err)
	}
	return printJSON(txs)
}

func decodeTransaction(ctx *cli.Context, svc application.Service) error {
	c, cancel := signalContext(ctx.Context)
	defer cancel()

	decoded, err := svc.DecodeTransaction(c, ctx.String(txFlagName))
	if err != nil {
		return failed(err)
	}

	extensions := make([]map[string]string, 0, len(decoded.Extensions))
	for _, ext := range decoded.Extensions {
		if ext.Value == nil {
			continue
		}
		extensions = append(extensions, map[string]string{
			"identifier": ext.Identifier,
			"value":      formatDecoded(ext.Value),
		})
	}

	return printJSON(map[string]any{
		"signer":        decoded.Signer,
		"signatureKind": decoded.SignatureKind,
		"metadataMode":  decoded.MetadataMode,
		"extensions":    extensions,
		"call":          decoded.Call,
	})
}

func parseBuildRequest(ctx *cli.Context) (*application.BuildRequest, error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(ctx.String(destFlagName), "0x"))
	if err != nil || len(buf) != len(sublib.AccountID{}) {
		return nil, fmt.Errorf("invalid dest %s", ctx.String(destFlagName))
	}
	var dest sublib.AccountID
	copy(dest[:], buf)

	amount, ok := new(big.Int).SetString(ctx.String(amountFlagName), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %s", ctx.String(amountFlagName))
	}

	req := &application.BuildRequest{
		Dest:          dest,
		Amount:        amount,
		MortalPeriod:  ctx.Uint64(mortalPeriodFlagName),
		CheckMetadata: ctx.Bool(checkMetadataFlagName),
	}
	if ctx.IsSet(nonceFlagName) {
		nonce := ctx.Uint64(nonceFlagName)
		req.Nonce = &nonce
	}
	if ctx.IsSet(tipFlagName) {
		tip, ok := new(big.Int).SetString(ctx.String(tipFlagName), 10)
		if !ok {
			return nil, fmt.Errorf("invalid tip %s", ctx.String(tipFlagName))
		}
		req.Tip = tip
	}
	if ctx.IsSet(assetIdFlagName) {
		assetID := uint32(ctx.Uint(assetIdFlagName))
		req.AssetID = &assetID
	}
	return req, nil
}

func formatDecoded(value any) string {
	switch v := value.(type) {
	case extension.AssetTip:
		if v.AssetID == nil {
			return fmt.Sprintf("tip %s", v.Tip)
		}
		return fmt.Sprintf("tip %s, asset %d", v.Tip, *v.AssetID)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
}

// failed logs the error details, the returned error carries the exit code.
func failed(err errors.Error) error {
	err.Log().Debug("request failed")
	return err
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
