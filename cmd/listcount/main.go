// Command listcount fetches pages of a remote admin list and manages the
// shared pagination totals kept for it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/listcount"
	"github.com/unkn0wn-root/listcount/config"
	asynchook "github.com/unkn0wn-root/listcount/hooks/async"
	"github.com/unkn0wn-root/listcount/sloghooks"
)

type app struct {
	cfgPath   string
	namespace string
	url       string

	strs  []string
	nums  []string
	nulls []string

	page  int
	limit int
	pages int
}

// env is what a command needs once the config is loaded.
type env struct {
	cfg   *config.Config
	log   listcount.Logger
	hooks listcount.Hooks
	store listcount.Store // nil when the provider is "none"

	stopHooks func()
}

func (e *env) close(ctx context.Context) {
	if e.store != nil {
		if err := e.store.Close(ctx); err != nil {
			e.log.Warn("store close failed", listcount.Fields{"err": err})
		}
	}
	if e.stopHooks != nil {
		e.stopHooks()
	}
}

func (a *app) setup(ctx context.Context, stderr io.Writer) (*env, error) {
	cfg := config.Default()
	if a.cfgPath != "" {
		var err error
		if cfg, err = config.Load(a.cfgPath); err != nil {
			return nil, err
		}
	}
	if a.namespace != "" {
		cfg.Store.Namespace = a.namespace
	}
	if a.url != "" {
		cfg.Client.URL = a.url
	}

	log, err := config.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.Logger.Level == "debug" {
		level = slog.LevelDebug
	}
	sh := sloghooks.New(
		slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})),
		sloghooks.Options{StaleEvery: 10, SelfHealEvery: 10},
	)
	ah := asynchook.New(sh, 1, 256)

	store, err := config.NewStore(ctx, cfg.Store, log, ah)
	if err != nil {
		ah.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, hooks: ah, store: store, stopHooks: ah.Close}, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "listcount",
		Short: "Paginated admin lists with cached totals",
		Long: `listcount fetches pages of a remote admin list.

The server counts matching rows only when the filters change or after a
mutation; page turns reuse the cached total. With a shared store configured,
other processes start with the last known total.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	root.PersistentFlags().StringVarP(&a.namespace, "namespace", "n", "", "Totals namespace, overrides store.namespace")

	addFilterFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringArrayVarP(&a.strs, "filter", "f", nil, "String filter name=value (repeatable)")
		cmd.Flags().StringArrayVar(&a.nums, "num", nil, "Numeric filter name=value (repeatable)")
		cmd.Flags().StringArrayVar(&a.nulls, "null", nil, "Unset filter name (repeatable)")
	}

	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch pages of a list and print rows and total",
		Args:  cobra.NoArgs,
		RunE:  a.runFetch,
	}
	addFilterFlags(fetch)
	fetch.Flags().StringVar(&a.url, "url", "", "List endpoint, overrides client.url")
	fetch.Flags().IntVarP(&a.page, "page", "p", 1, "First page (1-based)")
	fetch.Flags().IntVarP(&a.limit, "limit", "l", 0, "Rows per page (default: client.page_limit)")
	fetch.Flags().IntVar(&a.pages, "pages", 1, "Number of consecutive pages to fetch")

	invalidate := &cobra.Command{
		Use:   "invalidate",
		Short: "Invalidate stored totals of a namespace after an out-of-band mutation",
		Args:  cobra.NoArgs,
		RunE:  a.runInvalidate,
	}
	addFilterFlags(invalidate)

	identity := &cobra.Command{
		Use:   "identity",
		Short: "Print the identity of a filter set",
		Args:  cobra.NoArgs,
		RunE:  a.runIdentity,
	}
	addFilterFlags(identity)

	root.AddCommand(fetch, invalidate, identity)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
