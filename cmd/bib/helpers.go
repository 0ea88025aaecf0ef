package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/anumlab/bibdb/internal/authorname"
	"github.com/anumlab/bibdb/internal/config"
	"github.com/anumlab/bibdb/internal/crossref"
	"github.com/anumlab/bibdb/internal/fusion"
	"github.com/anumlab/bibdb/internal/grobid"
	"github.com/anumlab/bibdb/internal/ingest"
	"github.com/anumlab/bibdb/internal/openalex"
	"github.com/anumlab/bibdb/internal/storage"
)

// mustFindRepository locates the enclosing repository or exits.
func mustFindRepository() string {
	start, code := getRepoRoot()
	if code != 0 {
		os.Exit(code)
	}

	root, err := config.FindRepository(start)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// mustOpenStore opens the repository database or exits.
func mustOpenStore(root string) *storage.Store {
	store, err := storage.Open(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return store
}

// mustLoadConfig loads repository config merged over global config, or exits.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return config.Resolve(cfg)
}

// ownerMatcher builds the owner-name matcher from configured aliases,
// falling back to the built-in alias list.
func ownerMatcher(cfg *config.Config) *authorname.Matcher {
	aliases := cfg.OwnerAliases
	if len(aliases) == 0 {
		aliases = authorname.DefaultOwnerAliases
	}
	return authorname.NewMatcher(aliases)
}

// buildService wires the ingest service with whatever providers the
// configuration and environment make available. The full-text parser is
// probed once at startup; an unreachable server drops that path rather
// than failing the command.
func buildService(ctx context.Context, store *storage.Store, cfg *config.Config) *ingest.Service {
	_ = godotenv.Load()

	owner := ownerMatcher(cfg)

	var crOpts []crossref.ClientOption
	if cfg.CrossrefMailto != "" {
		crOpts = append(crOpts, crossref.WithMailto(cfg.CrossrefMailto))
	}
	registry := crossref.NewClient(crOpts...)

	var oaOpts []openalex.ClientOption
	if cfg.OpenAlexMailto != "" {
		oaOpts = append(oaOpts, openalex.WithMailto(cfg.OpenAlexMailto))
	}
	search := openalex.NewClient(oaOpts...)

	pipeOpts := []fusion.Option{
		fusion.WithRegistryLookup(registry),
		fusion.WithSearchProvider(search),
		fusion.WithOwnerMatcher(owner),
		fusion.WithLogWriter(os.Stderr),
	}

	var gbOpts []grobid.ClientOption
	if cfg.GrobidURL != "" {
		gbOpts = append(gbOpts, grobid.WithBaseURL(cfg.GrobidURL))
	}
	parser := grobid.NewClient(gbOpts...)
	if parser.Available(ctx) {
		pipeOpts = append(pipeOpts, fusion.WithFullTextParser(parser))
	}

	pipeline := fusion.New(pipeOpts...)

	return ingest.New(store, pipeline,
		ingest.WithRegistry(registry),
		ingest.WithOwnerMatcher(owner),
		ingest.WithLogWriter(os.Stderr),
	)
}

// buildServiceOffline wires the ingest service with no providers, for
// commands that never reach outside the repository.
func buildServiceOffline(store *storage.Store, cfg *config.Config) *ingest.Service {
	owner := ownerMatcher(cfg)
	pipeline := fusion.New(
		fusion.WithOwnerMatcher(owner),
		fusion.WithLogWriter(os.Stderr),
	)
	return ingest.New(store, pipeline,
		ingest.WithOwnerMatcher(owner),
		ingest.WithLogWriter(os.Stderr),
	)
}

// projectAreaOrDefault applies the configured default when no flag was given.
func projectAreaOrDefault(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.DefaultProjectArea
}
