// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command rbacsync is the offline Endpoint Catalog Synchronizer (C6):
// it reconciles the persisted ApiEndpoint/ApiOperation catalog against
// a registry.Registry snapshot described by a JSON manifest.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opentrusty/rbac-core/catalog"
	"github.com/opentrusty/rbac-core/config"
	"github.com/opentrusty/rbac-core/registry"
	"github.com/opentrusty/rbac-core/store/postgres"
)

// manifestEntry is the JSON shape of one registry.Entry in the
// --registry manifest: a flat, language-agnostic description of a
// handler's wire-up-time declaration so this tool never needs to
// import the application it reconciles against.
type manifestEntry struct {
	Method        string  `json:"method"`
	Path          string  `json:"path"`
	ModuleCode    string  `json:"module_code"`
	SubModuleCode *string `json:"submodule_code,omitempty"`
	ActionCode    string  `json:"action_code,omitempty"`
}

func main() {
	if err := newSyncCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rbacsync:", err)
		os.Exit(1)
	}
}

func newSyncCmd() *cobra.Command {
	var (
		dryRun        bool
		skipPaths     []string
		skipModules   []string
		skipOperation []string
		registryPath  string
	)

	cmd := &cobra.Command{
		Use:           "sync",
		Short:         "Reconcile the endpoint catalog against a registry manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), syncOptions{
				dryRun:        dryRun,
				skipPaths:     skipPaths,
				skipModules:   skipModules,
				skipOperation: skipOperation,
				registryPath:  registryPath,
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "report changes without writing them")
	flags.StringSliceVar(&skipPaths, "skip-paths", nil, "path prefixes to exclude from reconciliation")
	flags.StringSliceVar(&skipModules, "skip-modules", nil, "module codes to exclude from reconciliation")
	flags.StringSliceVar(&skipOperation, "skip-operations", nil, "METHOD:PATH operations to exclude from reconciliation")
	flags.StringVar(&registryPath, "registry", "registry.json", "path to the JSON registry manifest")

	return cmd
}

type syncOptions struct {
	dryRun        bool
	skipPaths     []string
	skipModules   []string
	skipOperation []string
	registryPath  string
}

func runSync(ctx context.Context, opts syncOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	reg, err := loadRegistry(opts.registryPath)
	if err != nil {
		return fmt.Errorf("load registry manifest %s: %w", opts.registryPath, err)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Database:     cfg.DBName,
		SSLMode:      cfg.DBSSLMode,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := postgres.NewEndpointRepository(db)

	skipOp := skipOperationMatcher(opts.skipOperation)
	changes, err := catalog.Sync(ctx, repo, reg, catalog.Options{
		DryRun:        opts.dryRun,
		SkipPaths:     opts.skipPaths,
		SkipModules:   opts.skipModules,
		SkipOperation: skipOp,
	})
	if err != nil {
		return fmt.Errorf("synchronize catalog: %w", err)
	}

	reportChanges(os.Stdout, changes, opts.dryRun)
	return nil
}

// loadRegistry reads a JSON manifest of registry entries and builds a
// registry.Registry from it, so this tool can reconcile without
// importing the application whose routes it describes.
func loadRegistry(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	reg := registry.New()
	for _, e := range entries {
		reg.Register(e.Method, e.Path, e.ModuleCode, e.SubModuleCode, e.ActionCode)
	}
	return reg, nil
}

// skipOperationMatcher builds a predicate from "METHOD:PATH" tokens.
func skipOperationMatcher(tokens []string) func(registry.Entry) bool {
	if len(tokens) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		skip[strings.ToUpper(t)] = true
	}
	return func(e registry.Entry) bool {
		return skip[strings.ToUpper(e.Method+":"+e.Path)]
	}
}

func reportChanges(w *os.File, changes []catalog.Change, dryRun bool) {
	mode := "applied"
	if dryRun {
		mode = "would apply"
	}
	if len(changes) == 0 {
		fmt.Fprintln(w, "rbacsync: catalog already up to date, no changes")
		return
	}
	for _, c := range changes {
		if !c.Created {
			continue
		}
		if c.Kind == "endpoint" {
			fmt.Fprintf(w, "rbacsync: %s endpoint %s (module=%s)\n", mode, c.Path, c.ModuleCode)
		} else {
			fmt.Fprintf(w, "rbacsync: %s operation %s %s (module=%s)\n", mode, c.Method, c.Path, c.ModuleCode)
		}
	}
}
