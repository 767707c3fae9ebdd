package main

import (
	"github.com/urfave/cli/v2"
)

const (
	destFlagName          = "dest"
	amountFlagName        = "amount"
	nonceFlagName         = "nonce"
	tipFlagName           = "tip"
	assetIdFlagName       = "asset-id"
	mortalPeriodFlagName  = "mortal-period"
	checkMetadataFlagName = "check-metadata"
	txIdFlagName          = "id"
	txFlagName            = "tx"
)

var (
	destFlag = &cli.StringFlag{
		Name:     destFlagName,
		Usage:    "hex encoded account id of the recipient",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     amountFlagName,
		Usage:    "amount to transfer in the smallest unit of the chain token",
		Required: true,
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  nonceFlagName,
		Usage: "nonce of the transaction, defaults to the next nonce of the signer account",
	}
	tipFlag = &cli.StringFlag{
		Name:  tipFlagName,
		Usage: "tip for the block author",
	}
	assetIdFlag = &cli.UintFlag{
		Name:  assetIdFlagName,
		Usage: "asset used to pay fees and tip if the chain supports it",
	}
	mortalPeriodFlag = &cli.Uint64Flag{
		Name:  mortalPeriodFlagName,
		Usage: "number of blocks the transaction is valid for, 0 means immortal",
	}
	checkMetadataFlag = &cli.BoolFlag{
		Name:  checkMetadataFlagName,
		Usage: "commit to the digest of the chain metadata",
		Value: true,
	}
	txIdFlag = &cli.StringFlag{
		Name:     txIdFlagName,
		Usage:    "id of the transaction",
		Required: true,
	}
	txFlag = &cli.StringFlag{
		Name:     txFlagName,
		Usage:    "hex encoded signed extrinsic",
		Required: true,
	}
)
