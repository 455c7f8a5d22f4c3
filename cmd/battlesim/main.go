// Package main provides battlesim, a CLI that plays one battle from the
// content files: fast-forwarded and printed, or interactively in a TUI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/idlequest/internal/battleserver"
	"github.com/cory-johannsen/idlequest/internal/config"
	"github.com/cory-johannsen/idlequest/internal/content"
	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
	"github.com/cory-johannsen/idlequest/internal/observability"
	"github.com/cory-johannsen/idlequest/internal/storage/postgres"
	"github.com/cory-johannsen/idlequest/internal/tui"
)

// backend is a battle source: a local session manager or a remote server.
type backend interface {
	tui.Backend
	Start(ctx context.Context, profile battle.PlayerProfile, req battle.EncounterRequest) (session.View, error)
	Abandon(ctx context.Context, id string) error
}

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	profilePath := flag.String("profile", "content/profiles/hero.yaml", "player profile YAML")
	kind := flag.String("kind", "normal", "encounter kind: normal, elite, or boss")
	risk := flag.Int("risk", 1, "risk tier (>= 1)")
	minTier := flag.Int("min-tier", 0, "minimum enemy tier hint (0 = none)")
	seed := flag.Int64("seed", 0, "seed the battle sequence (0 = config or random)")
	interactive := flag.Bool("i", false, "play interactively in the terminal UI")
	remote := flag.String("remote", "", "battle server address; empty plays locally")
	record := flag.Bool("record", false, "record the finished battle in the database (local only)")
	width := flag.Int("width", 100, "wrap width for printed history")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}

	// The terminal UI owns the screen: log there only when a log file is set.
	logger := zap.NewNop()
	if !*interactive || cfg.Logging.File != "" {
		if logger, err = observability.NewLogger(cfg.Logging, "battlesim"); err != nil {
			log.Fatalf("initializing logger: %v", err)
		}
	}
	defer logger.Sync()

	profile, err := content.LoadProfile(*profilePath)
	if err != nil {
		log.Fatalf("loading profile: %v", err)
	}
	bundle, err := content.Load(cfg.Content, logger)
	if err != nil {
		log.Fatalf("loading content: %v", err)
	}
	defer bundle.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var be backend
	if *remote != "" {
		conn, err := grpc.NewClient(*remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("connecting to %s: %v", *remote, err)
		}
		defer conn.Close()
		be = battleserver.NewClient(conn)
	} else {
		var recorder session.Recorder
		if *record {
			pool, err := postgres.NewPool(ctx, cfg.Database)
			if err != nil {
				log.Fatalf("connecting to database: %v", err)
			}
			defer pool.Close()
			if err := pool.RequireSchema(ctx); err != nil {
				log.Fatalf("checking database schema: %v", err)
			}
			recorder = postgres.NewBattleRepository(pool.DB())
		}
		be = bundle.Sessions(cfg.Battle, logger, recorder)
	}

	req := battle.EncounterRequest{Kind: battle.EncounterKind(*kind), RiskTier: *risk, MinTier: *minTier}
	if !req.Kind.Valid() {
		log.Fatalf("invalid encounter kind %q", *kind)
	}
	v, err := be.Start(ctx, profile, req)
	if err != nil {
		log.Fatalf("starting battle: %v", err)
	}

	if *interactive {
		report, err := tui.Run(be, bundle.Catalog, v)
		if err != nil {
			log.Fatalf("running terminal UI: %v", err)
		}
		if report != nil {
			fmt.Println(tui.RenderReport(*report))
		}
		return
	}

	if err := fastForward(ctx, be, v, *width); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fastForward skips the battle to its end and prints the history and report.
func fastForward(ctx context.Context, be backend, v session.View, width int) error {
	fmt.Printf("Seed %d: %s vs %s\n", v.Seed, v.State.Player.Name, v.State.Enemy.Name)

	final, _, err := be.Skip(ctx, v.ID)
	if errors.Is(err, battle.ErrRunawayBattle) {
		fmt.Println(tui.RenderHistory(final.State.History, width))
		_ = be.Abandon(ctx, v.ID)
		return fmt.Errorf("battle did not resolve: %w", err)
	}
	if err != nil {
		return fmt.Errorf("fast-forwarding: %w", err)
	}
	fmt.Println(tui.RenderHistory(final.State.History, width))

	report, err := be.Finish(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("computing rewards: %w", err)
	}
	fmt.Println()
	fmt.Println(tui.RenderReport(report))
	return nil
}
