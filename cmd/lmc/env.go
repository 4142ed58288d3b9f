package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"lmc/internal/auth"
	"lmc/internal/config"
	"lmc/internal/draft"
	"lmc/internal/errors"
	"lmc/internal/execguard"
	"lmc/internal/identity"
	"lmc/internal/logging"
	"lmc/internal/paths"
	"lmc/internal/portal"
	"lmc/internal/tabs"
	"lmc/internal/workspace"
)

// composerEnv wires the engine components for one command invocation. Tabs
// and drafts are hydrated from the workspace at the start and saved back
// once the command's mutations are done.
type composerEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *portal.Registry
	vault    *auth.Vault
	ws       *workspace.Workspace
	tabs     *tabs.Collection
	drafts   *draft.Store
	guard    *execguard.Guard

	client *portal.Client
}

// newEnv loads config, the portal registry, and the workspace state.
func newEnv() (*composerEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := logging.LevelFromVerbosity(verbosity, quiet)
	if verbosity == 0 && !quiet {
		level = logging.LevelFromString(cfg.Logging.Level)
	}
	logger := logging.NewLogger(os.Stderr, level, logging.Format(cfg.Logging.Format))

	registry, err := portal.LoadRegistry()
	if err != nil {
		return nil, err
	}

	vaultPath, err := paths.VaultPath()
	if err != nil {
		return nil, err
	}
	keyPath, err := paths.VaultKeyPath()
	if err != nil {
		return nil, err
	}
	vault := auth.NewVault(vaultPath, keyPath)

	wsPath, err := paths.WorkspacePath()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(wsPath, logger)
	if err != nil {
		return nil, err
	}

	collection, err := ws.LoadTabs()
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	env := &composerEnv{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		vault:    vault,
		ws:       ws,
		tabs:     collection,
		guard:    execguard.New(),
	}
	env.drafts = draft.NewStore(collection, &gatewayAdapter{env: env}, logger)

	persisted, err := ws.LoadDrafts()
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	env.drafts.Restore(persisted)

	return env, nil
}

// save persists tab and draft state back to the workspace.
func (e *composerEnv) save() error {
	if err := e.ws.SaveTabs(e.tabs); err != nil {
		return err
	}
	return e.ws.SaveDrafts(e.drafts.Export())
}

// close releases the workspace database.
func (e *composerEnv) close() {
	_ = e.ws.Close()
}

// activePortal returns the currently selected portal id.
func (e *composerEnv) activePortal() string {
	return e.registry.Active
}

// portalClient returns a client for the given portal, defaulting to the
// active one. The credential comes from the vault.
func (e *composerEnv) portalClient(portalID string) (*portal.Client, error) {
	if portalID == "" {
		portalID = e.registry.Active
	}
	if portalID == "" {
		return nil, errors.New(errors.PortalInactive, "no active portal; run 'lmc portal use <id>'")
	}
	if e.client != nil && e.client.PortalID() == portalID {
		return e.client, nil
	}
	entry, ok := e.registry.Get(portalID)
	if !ok {
		return nil, errors.Newf(errors.PortalInactive, "portal %q is not registered", portalID)
	}
	token, err := e.vault.Token(portalID)
	if err != nil {
		return nil, errors.Wrap(errors.Unauthenticated, "no credential for portal "+portalID, err)
	}
	e.client = portal.NewClient(entry.ID, entry.Host, token, e.logger)
	return e.client, nil
}

// gatewayAdapter lazily resolves the active portal client per call, so the
// engine components can be constructed before a credential is known.
type gatewayAdapter struct {
	env *composerEnv
}

func (g *gatewayAdapter) FetchModuleDetails(ctx context.Context, mt identity.ModuleType, moduleID int) (*portal.Details, error) {
	c, err := g.env.portalClient("")
	if err != nil {
		return nil, err
	}
	return c.FetchModuleDetails(ctx, mt, moduleID)
}

func (g *gatewayAdapter) FetchScript(ctx context.Context, mt identity.ModuleType, moduleID int, facet identity.Facet) (string, int, error) {
	c, err := g.env.portalClient("")
	if err != nil {
		return "", 0, err
	}
	return c.FetchScript(ctx, mt, moduleID, facet)
}

func (g *gatewayAdapter) CommitModule(ctx context.Context, mt identity.ModuleType, moduleID int, req *portal.CommitRequest) (*portal.CommitResult, error) {
	c, err := g.env.portalClient("")
	if err != nil {
		return nil, err
	}
	return c.CommitModule(ctx, mt, moduleID, req)
}

func (g *gatewayAdapter) FetchLineageVersions(ctx context.Context, mt identity.ModuleType, lineageID int) ([]portal.LineageVersion, error) {
	c, err := g.env.portalClient("")
	if err != nil {
		return nil, err
	}
	return c.FetchLineageVersions(ctx, mt, lineageID)
}

func (g *gatewayAdapter) FetchLineageVersion(ctx context.Context, mt identity.ModuleType, lineageID, version int) (string, error) {
	c, err := g.env.portalClient("")
	if err != nil {
		return "", err
	}
	return c.FetchLineageVersion(ctx, mt, lineageID, version)
}

// newContext creates a context for command execution, cancelled on SIGINT.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// opTimeout bounds a single command's remote work.
const opTimeout = 2 * time.Minute

// newOpContext creates a signal-cancelled context bounded by opTimeout, for
// commands that talk to the portal.
func newOpContext() (context.Context, context.CancelFunc) {
	ctx, stop := newContext()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveTab accepts a full tab id or an unambiguous prefix.
func resolveTab(collection *tabs.Collection, ref string) (*tabs.Tab, error) {
	if tab := collection.Get(ref); tab != nil {
		return tab, nil
	}
	var match *tabs.Tab
	for _, tab := range collection.List() {
		if len(ref) >= 4 && len(tab.ID) >= len(ref) && tab.ID[:len(ref)] == ref {
			if match != nil {
				return nil, fmt.Errorf("tab reference %q is ambiguous", ref)
			}
			match = tab
		}
	}
	if match == nil {
		return nil, fmt.Errorf("tab %q not found", ref)
	}
	return match, nil
}
