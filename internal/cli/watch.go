package cli

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kallerud/lotline/internal/db"
	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/session"
	"github.com/kallerud/lotline/internal/store"
	"github.com/kallerud/lotline/internal/sync"
	"github.com/kallerud/lotline/internal/tui"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live conversation view",
		Long:  "Open the live watch view: the conversation list and the selected thread, refreshed continuously in the background.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("watch requires an interactive terminal")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			selfID, err := currentUser(ctx, client)
			if err != nil {
				return err
			}

			logger := logging.Component("watch")

			database, err := db.Open(cfg.DatabasePath(), cfg.Database.BusyTimeoutMs)
			if err != nil {
				return fmt.Errorf("open snapshot database: %w", err)
			}
			defer database.Close()
			snapshots := db.NewSnapshotRepository(database)

			st := store.New()
			if conversations, messages, err := snapshots.Load(ctx); err != nil {
				logger.Warn().Err(err).Msg("snapshot load failed, starting empty")
			} else if len(conversations) > 0 {
				st.Hydrate(conversations, messages)
				logger.Debug().Int("conversations", len(conversations)).Msg("hydrated from snapshot")
			}

			bus := events.NewInMemoryPublisher()
			controller := session.NewController(client, st, bus, sync.Config{
				ListInterval:   cfg.Sync.ListInterval,
				ThreadInterval: cfg.Sync.ThreadInterval,
				UnreadInterval: cfg.Sync.UnreadInterval,
			}, selfID)

			if err := controller.Start(ctx); err != nil {
				return err
			}
			defer controller.Shutdown()

			persistCtx, stopPersist := context.WithCancel(ctx)
			defer stopPersist()
			go persistSnapshots(persistCtx, st, snapshots, logger)

			tuiErr := tui.Run(tui.Config{
				Theme:          cfg.TUI.Theme,
				ShowTimestamps: cfg.TUI.ShowTimestamps,
				CompactMode:    cfg.TUI.CompactMode,
			}, controller, selfID)

			stopPersist()
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			saveSnapshot(saveCtx, st, snapshots, logger)

			return tuiErr
		},
	}
}

const snapshotPersistInterval = 15 * time.Second

// persistSnapshots writes the store to the snapshot database in the
// background whenever it has changed since the last write.
func persistSnapshots(ctx context.Context, st *store.Store, snapshots *db.SnapshotRepository, logger zerolog.Logger) {
	var dirty atomic.Bool
	unsubscribe := st.Subscribe(func(store.Change) {
		dirty.Store(true)
	})
	defer unsubscribe()

	ticker := time.NewTicker(snapshotPersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dirty.Swap(false) {
				saveSnapshot(ctx, st, snapshots, logger)
			}
		}
	}
}

func saveSnapshot(ctx context.Context, st *store.Store, snapshots *db.SnapshotRepository, logger zerolog.Logger) {
	conversations, messages := st.Snapshot()
	if err := snapshots.Save(ctx, conversations, messages); err != nil {
		logger.Warn().Err(err).Msg("snapshot save failed")
	}
}
