package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jetsharklambo/pu2-toolkit/api"
	"github.com/jetsharklambo/pu2-toolkit/app"
	"github.com/jetsharklambo/pu2-toolkit/chain"
	"github.com/jetsharklambo/pu2-toolkit/claims"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/pu2"
	"github.com/jetsharklambo/pu2-toolkit/txmgr"
)

// mustApp dials the configured endpoint and assembles the application.
// Callers own the returned client and must Close it.
func mustApp(ctx context.Context, needKey bool) (*app.App, *txmgr.Manager, *chain.Client) {
	if needKey {
		if _, err := cfg.RequireKey(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		fmt.Printf("RPC connection failed: %v\n", err)
		os.Exit(1)
	}
	contract := pu2.New(cfg.Contract, client)
	scanner := claims.New(client, cfg.Contract, pu2.WinningsClaimedID, claims.Config{
		Window:  cfg.ScanWindow,
		Workers: cfg.ScanWorkers,
		Rate:    rate.Limit(cfg.ScanRate),
	})

	var (
		manager *txmgr.Manager
		runner  app.ActionRunner
	)
	if cfg.Key != nil {
		manager, err = txmgr.New(client, contract, cfg.Key, txmgr.Config{ConfirmTimeout: cfg.ConfirmTimeout})
		if err != nil {
			fmt.Printf("Signer setup failed: %v\n", err)
			os.Exit(1)
		}
		runner = manager
		log.WithField("from", manager.From().Hex()).Debug("signer ready")
	}
	return app.New(contract, scanner, runner), manager, client
}

func normalizeCode(arg string) string {
	return strings.ToUpper(strings.TrimSpace(arg))
}

func parseAddr(s string) common.Address {
	if !common.IsHexAddress(s) {
		fmt.Printf("Invalid address: %s\n", s)
		os.Exit(1)
	}
	return common.HexToAddress(s)
}

func parseAddrs(args []string) []common.Address {
	out := make([]common.Address, 0, len(args))
	for _, s := range args {
		out = append(out, parseAddr(s))
	}
	return out
}

func printAction(a *txmgr.Action) {
	if a.TxHash != (common.Hash{}) {
		fmt.Printf("Transaction: %s\n", a.TxHash.Hex())
	}
	if a.GameCode != "" {
		fmt.Printf("Game code: %s\n", a.GameCode)
	}
	fmt.Println(a.Message)
}

func printSnapshot(snap *app.Snapshot) {
	g := snap.Game
	fmt.Printf("Game %s\n", g.Code)
	fmt.Printf("  host:    %s\n", g.Host.Hex())
	if g.UsesToken() {
		fmt.Printf("  buy-in:  %s (token %s)\n", g.BuyIn, g.Token.Hex())
	} else {
		fmt.Printf("  buy-in:  %s wei\n", g.BuyIn)
	}
	fmt.Printf("  players: %d/%d\n", g.PlayerCount, g.MaxPlayers)
	fmt.Printf("  locked:  %v\n", g.Locked)
	if len(g.PrizeSplits) > 0 {
		fmt.Printf("  splits:  %v bps\n", []uint64(g.PrizeSplits))
	}
	if len(g.Judges) > 0 {
		fmt.Printf("  judges:  %s\n", strings.Join(hexList(g.Judges), ", "))
	}
	for _, p := range g.Players {
		mark := ""
		if snap.Winners[p] {
			mark = "winner"
			if snap.Claimed[p] {
				mark = "winner, claimed"
			}
		}
		fmt.Printf("  player %s %s\n", p.Hex(), mark)
	}
}

func hexList(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

// refresh re-reads the game after a confirmed action so the operator
// sees the resulting state.
func refresh(ctx context.Context, application *app.App, code string) {
	if !core.IsGameCode(code) {
		return
	}
	snap, err := application.Snapshot(ctx, code)
	if err != nil {
		log.WithError(err).WithField("game", code).Warn("post-action refresh failed")
		return
	}
	printSnapshot(snap)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and websocket feed",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, manager, client := mustApp(ctx, false)
			defer client.Close()

			gin.SetMode(gin.ReleaseMode)
			server := api.NewServer(application)
			if manager != nil {
				manager.OnSettle(server.NotifySettled)
				manager.OnUpdate(server.NotifyAction)
			} else {
				log.Warn("no signing key configured, serving read-only")
			}
			log.WithField("addr", cfg.HTTPAddr).Info("serving HTTP API")
			if err := server.Router().Run(cfg.HTTPAddr); err != nil {
				fmt.Printf("HTTP server failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func createCmd() *cobra.Command {
	var (
		tokenAddr  string
		maxPlayers uint64
	)
	cmd := &cobra.Command{
		Use:   "create <buy-in-wei>",
		Short: "Create a new game",
		Long: `Create a new game with the given buy-in.

Example:
  pu2 create 1000000000000000 --max-players 4
  pu2 create 5000000 --max-players 8 --token 0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			buyIn, ok := new(big.Int).SetString(args[0], 10)
			if !ok {
				fmt.Printf("Invalid buy-in amount: %s\n", args[0])
				os.Exit(1)
			}
			params := txmgr.CreateParams{BuyIn: buyIn, MaxPlayers: maxPlayers}
			if tokenAddr != "" {
				params.Token = parseAddr(tokenAddr)
			}

			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			action, err := application.Create(ctx, params)
			if err != nil {
				fmt.Printf("Create failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, action.GameCode)
		},
	}
	cmd.Flags().StringVar(&tokenAddr, "token", "", "ERC-20 token address for the buy-in (default: native coin)")
	cmd.Flags().Uint64Var(&maxPlayers, "max-players", 0, "Maximum number of players")
	cmd.MarkFlagRequired("max-players")
	return cmd
}

func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a game, paying its buy-in",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			code := normalizeCode(args[0])
			action, err := application.Join(ctx, code)
			if err != nil {
				fmt.Printf("Join failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, code)
		},
	}
}

func lockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <code>",
		Short: "Lock a game so winners can be reported",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			code := normalizeCode(args[0])
			action, err := application.Lock(ctx, code)
			if err != nil {
				fmt.Printf("Lock failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, code)
		},
	}
}

func winnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "winners <code> <address>...",
		Short: "Report the winners of a locked game",
		Long: `Report the winners of a locked game. The number of addresses must match
the game's prize structure: one for winner-takes-all, one per split
otherwise.`,
		Args: cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			code := normalizeCode(args[0])
			action, err := application.ReportWinners(ctx, code, parseAddrs(args[1:]))
			if err != nil {
				fmt.Printf("Report failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, code)
		},
	}
}

func claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <code>",
		Short: "Claim your winnings from a settled game",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			code := normalizeCode(args[0])
			action, err := application.Claim(ctx, code)
			if err != nil {
				fmt.Printf("Claim failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, code)
		},
	}
}

func splitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "splits <code> <bps>...",
		Short: "Set the prize splits in basis points",
		Long: `Set the prize splits in basis points. Splits must sum to 10000.

Example:
  pu2 splits ABC123 5000 3000 2000`,
		Args: cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			splits := make(core.PrizeSplits, 0, len(args)-1)
			for _, s := range args[1:] {
				n, err := strconv.ParseUint(s, 10, 64)
				if err != nil {
					fmt.Printf("Invalid split %q: expected basis points\n", s)
					os.Exit(1)
				}
				splits = append(splits, n)
			}

			ctx := cmd.Context()
			application, _, client := mustApp(ctx, true)
			defer client.Close()

			code := normalizeCode(args[0])
			action, err := application.SetSplits(ctx, code, splits)
			if err != nil {
				fmt.Printf("Set splits failed: %v\n", err)
				os.Exit(1)
			}
			printAction(action)
			refresh(ctx, application, code)
		},
	}
}

func judgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judges",
		Short: "Manage a game's judges",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <code> <address>",
			Short: "Appoint one judge",
			Args:  cobra.ExactArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				application, _, client := mustApp(ctx, true)
				defer client.Close()

				code := normalizeCode(args[0])
				action, err := application.AddJudge(ctx, code, parseAddr(args[1]))
				if err != nil {
					fmt.Printf("Add judge failed: %v\n", err)
					os.Exit(1)
				}
				printAction(action)
				refresh(ctx, application, code)
			},
		},
		&cobra.Command{
			Use:   "set <code> [address]...",
			Short: "Replace the judge set (no addresses clears it)",
			Args:  cobra.MinimumNArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				application, _, client := mustApp(ctx, true)
				defer client.Close()

				code := normalizeCode(args[0])
				action, err := application.SetJudges(ctx, code, parseAddrs(args[1:]))
				if err != nil {
					fmt.Printf("Set judges failed: %v\n", err)
					os.Exit(1)
				}
				printAction(action)
				refresh(ctx, application, code)
			},
		},
	)
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <code>",
		Short: "Show a game with winner and claim status",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, false)
			defer client.Close()

			snap, err := application.Snapshot(ctx, normalizeCode(args[0]))
			if err != nil {
				fmt.Printf("Status failed: %v\n", err)
				os.Exit(1)
			}
			printSnapshot(snap)
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <code>",
		Short: "Reconcile confirmed winners against claim events",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			application, _, client := mustApp(ctx, false)
			defer client.Close()

			snap, err := application.Snapshot(ctx, normalizeCode(args[0]))
			if err != nil {
				fmt.Printf("Scan failed: %v\n", err)
				os.Exit(1)
			}
			winners := core.ConfirmedWinners(snap.Game.Players, snap.Winners)
			if len(winners) == 0 {
				fmt.Println("No confirmed winners yet.")
				return
			}
			for _, w := range winners {
				status := "not claimed"
				if snap.Claimed[w] {
					status = "claimed"
				}
				fmt.Printf("%s  %s\n", w.Hex(), status)
			}
		},
	}
}
