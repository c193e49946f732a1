package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anonto42/memorylane/backend/internal/assets"
	supastorage "github.com/anonto42/memorylane/backend/internal/blob/supabase"
	"github.com/anonto42/memorylane/backend/internal/functions"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/anonto42/memorylane/backend/internal/store/postgrest"
	"github.com/anonto42/memorylane/backend/pkg/config"
	"github.com/anonto42/memorylane/backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// accountDeleter deletes the signed-in user's account
type accountDeleter interface {
	DeleteUserData(ctx context.Context, viewer *identity.Viewer) error
}

// app holds the repositories a command works with
type app struct {
	viewer        *identity.Viewer
	memories      *repositories.MemoryRepository
	relationships *repositories.RelationshipRepository
	profiles      *repositories.ProfileRepository
	account       accountDeleter
	log           *zap.Logger
}

type builder func() (*app, error)

// defaultApp wires the repositories to the Supabase project named by the environment
func defaultApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Env); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	lg := logger.Get()

	var viewer *identity.Viewer
	token := cfg.SupabaseAnonKey
	if cfg.AccessToken != "" {
		v, err := identity.ViewerFromUnverifiedToken(cfg.AccessToken)
		if err != nil {
			return nil, err
		}
		viewer, token = v, v.Token
	}

	rest := postgrest.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	images := supastorage.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, token, cfg.StorageBucket)
	fn := functions.New(cfg.FunctionsURL, cfg.SupabaseAnonKey)

	profiles := repositories.NewProfileRepository(rest, lg)
	relationships := repositories.NewRelationshipRepository(rest, fn, fn, lg)
	memories := repositories.NewMemoryRepository(rest, assets.NewManager(images, cfg.StorageBucket, lg), profiles, relationships, lg)

	return &app{
		viewer:        viewer,
		memories:      memories,
		relationships: relationships,
		profiles:      profiles,
		account:       fn,
		log:           lg,
	}, nil
}

func newRootCmd(build builder) *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:          "timeline",
		Short:        "Share memories with the people you are connected to",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = build()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	get := func() *app { return a }

	root.AddCommand(
		timelineCmd(get),
		memoryCmd(get),
		reactCmd(get),
		commentCmd(get),
		relationshipsCmd(get),
		profileCmd(get),
		deleteAccountCmd(get),
	)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readImages loads image files from disk; content types are sniffed on upload
func readImages(paths []string) ([]assets.File, error) {
	files := make([]assets.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		files = append(files, assets.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
