// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tsmetactl is a small operator CLI for inspecting a catalog
// offline: list tables, dump a table's current schema, verify that the
// catalog's kv store replays cleanly. It
// replaces the teacher's cmd/dca/main.go (a bare flag.Parse + log.Print
// wrapper around start.Start) with spf13/cobra subcommands bound through
// spf13/viper, following steveyegge-beads's CLI stack.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solidcoredata/tsmeta/repo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "tsmetactl",
		Short: "Inspect and verify a tsmeta catalog",
	}

	root.PersistentFlags().String("root-dir", ".", "directory holding the catalog's kv store file")
	root.PersistentFlags().Int32("tsdb-id", 1, "shard id of the catalog to open")
	root.PersistentFlags().Int32("max-tables", 4096, "upper bound on tid for this catalog")
	v.BindPFlag("root_dir", root.PersistentFlags().Lookup("root-dir"))
	v.BindPFlag("tsdb_id", root.PersistentFlags().Lookup("tsdb-id"))
	v.BindPFlag("max_tables", root.PersistentFlags().Lookup("max-tables"))

	root.AddCommand(newListCmd(v))
	root.AddCommand(newSchemaCmd(v))
	root.AddCommand(newVerifyCmd(v))
	return root
}

func openRepo(ctx context.Context, v *viper.Viper) (*repo.Repo, error) {
	cfg, err := repo.LoadConfig(v)
	if err != nil {
		return nil, err
	}
	return repo.Open(ctx, cfg, nil, nil, slog.Default())
}

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every table currently registered in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo(ctx, v)
			if err != nil {
				return err
			}
			defer r.Close()

			for _, t := range r.Meta().AllTables() {
				fmt.Printf("tid=%d\tuid=%d\tkind=%v\tname=%q\n", t.TID(), t.UID(), t.Kind(), t.Name())
			}
			for _, t := range r.Meta().SuperList() {
				fmt.Printf("tid=-\tuid=%d\tkind=%v\tname=%q\n", t.UID(), t.Kind(), t.Name())
			}
			return nil
		},
	}
}

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	var uid uint64
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Dump a table's current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo(ctx, v)
			if err != nil {
				return err
			}
			defer r.Close()

			t, ok := r.Meta().GetTableByUID(uid)
			if !ok {
				return fmt.Errorf("tsmetactl: uid %d not found", uid)
			}
			s := t.CurrentSchema()
			if s == nil {
				fmt.Println("no schema (super table with no data schema, or empty history)")
				return nil
			}
			fmt.Printf("version=%d\n", s.Version)
			for _, c := range s.Columns {
				fmt.Printf("  col_id=%d type=%s bytes=%d\n", c.ColID, c.Type, c.Bytes)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&uid, "uid", 0, "table uid to dump")
	return cmd
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Open the catalog, replaying its kv store, reporting any corruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo(ctx, v)
			if err != nil {
				return err
			}
			defer r.Close()
			fmt.Printf("catalog opened cleanly: %d tables, %d super tables\n",
				r.Meta().TableCount(), len(r.Meta().SuperList()))
			return nil
		},
	}
}
