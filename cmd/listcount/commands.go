package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/listcount"
	"github.com/unkn0wn-root/listcount/client"
	"github.com/unkn0wn-root/listcount/config"
	"github.com/unkn0wn-root/listcount/view"
)

func (a *app) runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	filters, err := parseFilters(a.strs, a.nums, a.nulls)
	if err != nil {
		return err
	}
	if a.pages < 1 {
		return errors.New("--pages must be at least 1")
	}

	e, err := a.setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close(ctx)

	lister, err := client.New[json.RawMessage](config.ClientOptions(e.cfg.Client, e.log))
	if err != nil {
		return err
	}
	m, err := listcount.New(config.ManagerOptions(e.cfg.Store, e.store, e.log, e.hooks))
	if err != nil {
		return err
	}
	v := view.New[json.RawMessage](lister, view.Options{Manager: m, Logger: e.log})
	defer v.Close()

	limit := a.limit
	if limit <= 0 {
		limit = e.cfg.Client.PageLimit
	}
	out := cmd.OutOrStdout()
	for i := 0; i < a.pages; i++ {
		p, err := v.Load(ctx, filters, listcount.Page{Page: a.page + i, Limit: limit})
		if err != nil {
			return err
		}
		for _, row := range p.Rows {
			fmt.Fprintln(out, string(row))
		}
		total := "unknown"
		if p.HasTotal {
			total = fmt.Sprintf("%d", p.Total)
		}
		counted := ""
		if p.Counted {
			counted = " (counted)"
		}
		fmt.Fprintf(out, "page %d/%d total %s%s\n", p.Page.Page, p.Pages(), total, counted)
		if len(p.Rows) < p.Page.Limit {
			break
		}
	}
	return nil
}

func (a *app) runInvalidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := a.setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close(ctx)
	if e.store == nil {
		return errors.New("invalidate: no shared store configured (store.provider is none)")
	}

	var ids []string
	if len(a.strs)+len(a.nums)+len(a.nulls) > 0 {
		filters, err := parseFilters(a.strs, a.nums, a.nulls)
		if err != nil {
			return err
		}
		ids = append(ids, listcount.Identity(filters))
	}
	ns := e.cfg.Store.Namespace
	if err := e.store.Invalidate(ctx, ns, ids...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "namespace %s invalidated (gen %d)\n", ns, e.store.SnapshotGen(ctx, ns))
	return nil
}

func (a *app) runIdentity(cmd *cobra.Command, _ []string) error {
	filters, err := parseFilters(a.strs, a.nums, a.nulls)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), listcount.Identity(filters))
	return nil
}
