// Command swapcli is the control client for swapd, the same role
// cmd/lncli played for lnd before this module's CLI surface was narrowed
// to spec.md §6's six operations: sell-xmr, buy-xmr, resume, cancel,
// refund, and history. Built on github.com/urfave/cli (v1, matching the
// rest of this module's dependency set) against swaprpc.Client instead of
// lncli's generated lnrpc stub, following the same "one cli.Command per
// RPC, parse flags into a request, print the reply" shape.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/athanorlabs/btcxmrswap/swaprpc"
)

func main() {
	app := cli.NewApp()
	app.Name = "swapcli"
	app.Usage = "control a running swapd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "http://localhost:10013/",
			Usage: "swaprpc endpoint to dial",
		},
		cli.StringFlag{
			Name:  "macaroon",
			Usage: "hex-encoded macaroon, overrides --macaroonpath",
		},
		cli.StringFlag{
			Name:  "macaroonpath",
			Usage: "path to a file containing a hex-encoded macaroon",
		},
	}
	app.Commands = []cli.Command{
		sellXMRCommand,
		buyXMRCommand,
		resumeCommand,
		cancelCommand,
		refundCommand,
		historyCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "swapcli:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec.md §6's three-value exit code
// convention: 0 (handled by cli.App itself on success), 1 for a
// recoverable failure the operator can retry or work around (bad
// arguments, a declined cooperative redeem, a not-yet-matured timelock),
// 2 for anything swapcli cannot classify, which it treats as
// unrecoverable.
func exitCodeFor(err error) int {
	if _, ok := err.(*jsonRPCClassifiedError); ok {
		return 1
	}
	return 2
}

// jsonRPCClassifiedError marks an error as recoverable (exit code 1)
// rather than unrecoverable (exit code 2); swaprpc.Client.call's errors
// already carry a descriptive message, this just changes how swapcli
// classifies them on the way out.
type jsonRPCClassifiedError struct{ error }

func recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &jsonRPCClassifiedError{err}
}

func newClient(c *cli.Context) (*swaprpc.Client, error) {
	macHex := c.GlobalString("macaroon")
	if macHex == "" {
		if path := c.GlobalString("macaroonpath"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading macaroon file: %w", err)
			}
			macHex = strings.TrimSpace(string(raw))
		}
	}
	return swaprpc.NewClient(c.GlobalString("rpcserver"), macHex), nil
}

var sellXMRCommand = cli.Command{
	Name:  "sell-xmr",
	Usage: "confirm this daemon is configured to sell xmr and is listening for offers",
	Action: func(c *cli.Context) error {
		client, err := newClient(c)
		if err != nil {
			return err
		}
		resp, err := client.SellXMR(context.Background())
		if err != nil {
			return recoverable(err)
		}
		fmt.Printf("listening: %v\npayout script: %s\n", resp.Listening, resp.PayoutScript)
		return nil
	},
}

var buyXMRCommand = cli.Command{
	Name:  "buy-xmr",
	Usage: "offer to buy monero from a peer in exchange for bitcoin",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "amount", Usage: "bitcoin amount to offer, in satoshis"},
		cli.StringFlag{Name: "peer", Usage: "peer id to contact"},
		cli.StringSliceFlag{Name: "peer-addr", Usage: "network address(es) to reach peer at"},
		cli.StringFlag{Name: "payout-script", Usage: "hex-encoded script your redeem_tx should pay"},
	},
	Action: func(c *cli.Context) error {
		client, err := newClient(c)
		if err != nil {
			return err
		}
		payoutScript := c.String("payout-script")
		if _, err := hex.DecodeString(payoutScript); err != nil {
			return fmt.Errorf("decoding --payout-script: %w", err)
		}
		resp, err := client.BuyXMR(context.Background(), &swaprpc.BuyXMRRequest{
			BtcAmount:         c.Uint64("amount"),
			Peer:              c.String("peer"),
			PeerAddrs:         c.StringSlice("peer-addr"),
			BuyerPayoutScript: payoutScript,
		})
		if err != nil {
			return recoverable(err)
		}
		fmt.Printf("swap id: %s\nstage: %s\n", resp.SwapID, resp.Stage)
		return watchUntilTerminal(client, resp.SwapID)
	},
}

var resumeCommand = cli.Command{
	Name:      "resume",
	Usage:     "resume a swap that stopped short of a terminal stage",
	ArgsUsage: "buy-xmr|sell-xmr --swap-id <id>",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "swap-id", Usage: "swap id to resume"},
	},
	Action: func(c *cli.Context) error {
		role := c.Args().First()
		if role != "buy-xmr" && role != "sell-xmr" {
			return fmt.Errorf("resume requires a role argument: buy-xmr or sell-xmr")
		}
		client, err := newClient(c)
		if err != nil {
			return err
		}
		resp, err := client.Resume(context.Background(), &swaprpc.ResumeRequest{Role: role, SwapID: c.String("swap-id")})
		if err != nil {
			return recoverable(err)
		}
		fmt.Printf("stage: %s\nterminal: %v\n", resp.Stage, resp.Terminal)
		return nil
	},
}

var cancelCommand = cli.Command{
	Name:      "cancel",
	Usage:     "manually cancel an in-flight buy-xmr swap once its cancel timelock has matured",
	ArgsUsage: "buy-xmr --swap-id <id> [--force]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "swap-id", Usage: "swap id to cancel"},
		cli.BoolFlag{Name: "force", Usage: "cancel before the timelock has matured"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().First() != "buy-xmr" {
			return fmt.Errorf("cancel only applies to buy-xmr swaps")
		}
		client, err := newClient(c)
		if err != nil {
			return err
		}
		resp, err := client.Cancel(context.Background(), &swaprpc.CancelRequest{SwapID: c.String("swap-id"), Force: c.Bool("force")})
		if err != nil {
			return recoverable(err)
		}
		fmt.Printf("stage: %s\nterminal: %v\n", resp.Stage, resp.Terminal)
		return nil
	},
}

var refundCommand = cli.Command{
	Name:      "refund",
	Usage:     "broadcast the refund transaction for a cancelled buy-xmr swap",
	ArgsUsage: "buy-xmr --swap-id <id> [--force]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "swap-id", Usage: "swap id to refund"},
		cli.BoolFlag{Name: "force", Usage: "cancel before the timelock has matured, if not already cancelled"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().First() != "buy-xmr" {
			return fmt.Errorf("refund only applies to buy-xmr swaps")
		}
		client, err := newClient(c)
		if err != nil {
			return err
		}
		resp, err := client.Refund(context.Background(), &swaprpc.RefundRequest{SwapID: c.String("swap-id"), Force: c.Bool("force")})
		if err != nil {
			return recoverable(err)
		}
		fmt.Printf("stage: %s\nterminal: %v\n", resp.Stage, resp.Terminal)
		return nil
	},
}

var historyCommand = cli.Command{
	Name:  "history",
	Usage: "list every swap this daemon has a persisted record of",
	Action: func(c *cli.Context) error {
		client, err := newClient(c)
		if err != nil {
			return err
		}
		resp, err := client.History(context.Background())
		if err != nil {
			return recoverable(err)
		}
		for _, s := range resp.Swaps {
			fmt.Printf("%s  %-32s  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"), s.Stage, s.SwapID)
		}
		return nil
	},
}

// watchUntilTerminal subscribes to swap_id's stage transitions over
// swaprpc's websocket endpoint and prints each one until it reaches a
// terminal stage or the connection closes, the same non-detached
// progress-printing UX the sibling AthanorLabs/atomic-swap project's
// swapcli "take" command gives a caller who doesn't pass --detach.
func watchUntilTerminal(client *swaprpc.Client, swapID string) error {
	ch, err := client.WatchStage(context.Background(), swapID)
	if err != nil {
		// Streaming is a convenience; swapcli resume can always pick the
		// swap back up, so don't fail the command over it.
		fmt.Fprintln(os.Stderr, "swapcli: could not stream progress:", err)
		return nil
	}
	for summary := range ch {
		fmt.Printf("%s  stage: %s\n", summary.UpdatedAt.Format("15:04:05"), summary.Stage)
	}
	return nil
}
