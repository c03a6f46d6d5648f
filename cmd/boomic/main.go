package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/backup"
	"github.com/kevink2022/Boomic-sub000/internal/config"
	"github.com/kevink2022/Boomic-sub000/internal/edit"
	"github.com/kevink2022/Boomic-sub000/internal/event"
	"github.com/kevink2022/Boomic-sub000/internal/library"
	"github.com/kevink2022/Boomic-sub000/internal/logging"
	"github.com/kevink2022/Boomic-sub000/internal/maintenance"
	"github.com/kevink2022/Boomic-sub000/internal/scanner"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
	"github.com/kevink2022/Boomic-sub000/internal/transactor"
	"github.com/kevink2022/Boomic-sub000/internal/txlog"
	"github.com/kevink2022/Boomic-sub000/internal/version"
	"github.com/kevink2022/Boomic-sub000/internal/watcher"
)

const usage = `usage: boomic [command]

commands:
  serve                  boot the library, scan and watch for changes (default)
  history [n]            list the latest n transactions (default 20)
  rollback [--after] ID  undo transaction ID and everything after it;
                         with --after, keep ID itself
  stats                  print library counts
  backup [list]          snapshot the sqlite log, or list snapshots
  db [status|optimize|vacuum]
                         inspect or compact the sqlite log
  version                print the build version
`

func main() {
	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "history":
		err = history(args)
	case "rollback":
		err = rollback(args)
	case "stats":
		err = stats()
	case "backup":
		err = backupCmd(args)
	case "db":
		err = dbCmd(args)
	case "version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. console receives log
// output in addition to any configured file.
func setup(console io.Writer) (*config.Config, *logging.Manager, *slog.Logger, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging, console)
	slog.SetDefault(logger)
	return cfg, logManager, logger, nil
}

func openStore(ctx context.Context, cfg *config.Config) (txlog.Store, error) {
	path := cfg.Database.Path
	if cfg.Log.Backend == txlog.BackendFile {
		path = cfg.Log.Dir
	}
	store, err := txlog.Open(ctx, cfg.Log.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s log: %w", cfg.Log.Backend, err)
	}
	return store, nil
}

// app is a booted library with its transactor running.
type app struct {
	cfg   *config.Config
	store txlog.Store
	tx    *transactor.Transactor
	lib   *library.Service
}

// sqlite returns the log database, or an error for the other backends.
func (a *app) sqlite() (*txlog.SQLiteStore, error) {
	sq, ok := a.store.(*txlog.SQLiteStore)
	if !ok {
		return nil, fmt.Errorf("the %s log backend has no database", a.cfg.Log.Backend)
	}
	return sq, nil
}

func (a *app) backups(logger *slog.Logger) (*backup.Service, error) {
	sq, err := a.sqlite()
	if err != nil {
		return nil, err
	}
	return backup.NewService(sq.DB(), a.cfg.BackupDir(), a.cfg.Backup.Retention, a.cfg.Backup.MaxAgeDays, logger), nil
}

func (a *app) maintenance(logger *slog.Logger) (*maintenance.Service, error) {
	sq, err := a.sqlite()
	if err != nil {
		return nil, err
	}
	return maintenance.NewService(sq.DB(), a.cfg.Database.Path, logger), nil
}

func openApp(ctx context.Context, cfg *config.Config, bus *event.Bus, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []transactor.Option
	if bus != nil {
		opts = append(opts, transactor.WithBus(bus))
	}
	tx := transactor.New(store, cfg.Log.Namespace, logger, opts...)
	if err := tx.Boot(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("booting library: %w", err)
	}
	tx.Start()

	sc := scanner.New(cfg.Music.LibraryPath, cfg.Scanner.Extensions, cfg.Scanner.Exclusions, logger)
	lib := library.NewService(tx, edit.NewGenerator(nil), sc, bus, logger)
	return &app{cfg: cfg, store: store, tx: tx, lib: lib}, nil
}

func (a *app) close(logger *slog.Logger) {
	a.tx.Stop()
	if err := a.store.Close(); err != nil {
		logger.Error("closing log store", "error", err)
	}
}

func serve() error {
	cfg, logManager, logger, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer logManager.Close() //nolint:errcheck

	logger.Info("starting boomic",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("library", cfg.Music.LibraryPath),
		slog.String("log_backend", cfg.Log.Backend),
		slog.String("logging", cfg.Logging.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The bus outlives the transactor so its final events are delivered.
	busCtx, busCancel := context.WithCancel(context.Background())
	eventBus := event.NewBus(logger, 256)
	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		eventBus.Run(busCtx)
	}()
	defer func() {
		busCancel()
		<-busDone
	}()
	eventBus.Subscribe(event.Any, func(e event.Event) {
		logger.Debug("event", slog.String("type", string(e.Type)), slog.Any("data", e.Data))
	})

	a, err := openApp(ctx, cfg, eventBus, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	counts := a.lib.Current().Counts()
	logger.Info("library ready",
		"tracks", counts.Tracks,
		"albums", counts.Albums,
		"artists", counts.Artists,
		"transactions", a.tx.Len(),
	)

	if _, err := a.lib.Scan(ctx); err != nil {
		// A missing library directory is not fatal: the watcher may see it
		// appear later.
		logger.Error("initial scan failed", "error", err)
	}

	if _, err := a.sqlite(); err == nil {
		if cfg.Backup.Enabled {
			svc, _ := a.backups(logger)
			go svc.StartScheduler(ctx, cfg.Backup.Interval)
		}
		if cfg.Maintenance.Enabled {
			svc, _ := a.maintenance(logger)
			go svc.StartScheduler(ctx, cfg.Maintenance.Interval)
		}
	}

	if cfg.Music.Watch {
		scanFn := func(ctx context.Context) error {
			_, err := a.lib.Scan(ctx)
			return err
		}
		filter := scanner.New(cfg.Music.LibraryPath, cfg.Scanner.Extensions, cfg.Scanner.Exclusions, logger)
		watcherService := watcher.NewService(cfg.Music.LibraryPath, filter, scanFn, eventBus, logger, watcher.Options{
			Debounce:     cfg.Music.Debounce,
			MinInterval:  cfg.Music.MinRescanInterval,
			PollInterval: cfg.Music.PollInterval,
		})
		go watcherService.Start(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// offline boots the library for a one-shot command. Logs go to stderr so
// stdout stays clean.
func offline(fn func(ctx context.Context, a *app, logger *slog.Logger) error) error {
	cfg, logManager, logger, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer logManager.Close() //nolint:errcheck

	ctx := context.Background()
	a, err := openApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)
	return fn(ctx, a, logger)
}

func configPath() string {
	if p := os.Getenv("BOOMIC_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

func history(args []string) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}
	return offline(func(_ context.Context, a *app, _ *slog.Logger) error {
		records := a.lib.History(n)
		if len(records) == 0 {
			fmt.Println("no transactions")
			return nil
		}
		for i := len(records) - 1; i >= 0; i-- {
			printRecord(os.Stdout, records[i])
		}
		return nil
	})
}

func printRecord(w io.Writer, r transaction.Record) {
	marker := " "
	if r.Transaction.Significance == transaction.Significant {
		marker = "*"
	}
	fmt.Fprintf(w, "%s %s  %-16s %s (%s changes)\n",
		marker,
		r.ID,
		humanize.Time(r.Timestamp),
		r.Transaction.Label,
		humanize.Comma(int64(r.Transaction.Assertions.Len())),
	)
}

func rollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	after := fs.Bool("after", false, "keep the named transaction and undo only what follows it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("rollback needs exactly one transaction id")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("parsing transaction id: %w", err)
	}

	return offline(func(ctx context.Context, a *app, _ *slog.Logger) error {
		before := a.tx.Len()
		res, err := a.lib.Rollback(ctx, id, *after)
		if err != nil {
			return err
		}
		c := res.Basis.Counts()
		fmt.Printf("undid %d transactions; library now has %s tracks, %s albums, %s artists\n",
			before-a.tx.Len(),
			humanize.Comma(int64(c.Tracks)),
			humanize.Comma(int64(c.Albums)),
			humanize.Comma(int64(c.Artists)),
		)
		return nil
	})
}

func stats() error {
	return offline(func(_ context.Context, a *app, _ *slog.Logger) error {
		c := a.lib.Current().Counts()
		fmt.Printf("tracks:       %s\n", humanize.Comma(int64(c.Tracks)))
		fmt.Printf("albums:       %s\n", humanize.Comma(int64(c.Albums)))
		fmt.Printf("artists:      %s\n", humanize.Comma(int64(c.Artists)))
		fmt.Printf("taglists:     %s\n", humanize.Comma(int64(c.Taglists)))
		fmt.Printf("tags:         %s\n", humanize.Comma(int64(c.Tags)))
		fmt.Printf("transactions: %s\n", humanize.Comma(int64(a.tx.Len())))
		if last := a.lib.History(1); len(last) == 1 {
			fmt.Printf("last change:  %s (%s)\n", last[0].Transaction.Label, humanize.Time(last[0].Timestamp))
		}
		if since := a.lib.HistorySince(time.Now().Add(-24 * time.Hour)); len(since) > 0 {
			fmt.Printf("last 24h:     %d transactions\n", len(since))
		}
		return nil
	})
}

func backupCmd(args []string) error {
	list := len(args) > 0 && args[0] == "list"
	if len(args) > 0 && !list {
		return fmt.Errorf("unknown backup command %q", args[0])
	}
	return offline(func(ctx context.Context, a *app, logger *slog.Logger) error {
		svc, err := a.backups(logger)
		if err != nil {
			return err
		}
		if !list {
			snap, err := svc.Backup(ctx)
			if err != nil {
				return err
			}
			pruned, err := svc.Prune()
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s (%s); pruned %d\n", snap.Filename, humanize.Bytes(uint64(snap.Size)), pruned)
			return nil
		}

		snapshots, err := svc.List()
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Printf("no snapshots in %s\n", svc.Dir())
			return nil
		}
		for _, snap := range snapshots {
			fmt.Printf("%s  %8s  %s\n", snap.Filename, humanize.Bytes(uint64(snap.Size)), humanize.Time(snap.CreatedAt))
		}
		return nil
	})
}

func dbCmd(args []string) error {
	sub := "status"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "status", "optimize", "vacuum":
	default:
		return fmt.Errorf("unknown db command %q", sub)
	}

	return offline(func(ctx context.Context, a *app, logger *slog.Logger) error {
		svc, err := a.maintenance(logger)
		if err != nil {
			return err
		}
		switch sub {
		case "optimize":
			if err := svc.Optimize(ctx); err != nil {
				return err
			}
		case "vacuum":
			if err := svc.Vacuum(ctx); err != nil {
				return err
			}
		}

		st, err := svc.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("file:         %s (wal %s)\n", humanize.Bytes(uint64(st.DBFileSize)), humanize.Bytes(uint64(st.WALFileSize)))
		fmt.Printf("pages:        %s of %s (%s free)\n",
			humanize.Comma(st.PageCount), humanize.Bytes(uint64(st.PageSize)), humanize.Comma(st.FreePages))
		for _, ns := range slices.Sorted(maps.Keys(st.Transactions)) {
			fmt.Printf("%-13s %s transactions\n", ns+":", humanize.Comma(int64(st.Transactions[ns])))
		}
		return nil
	})
}
