package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"quickrev/internal/config"
	"quickrev/internal/domain"
	pgloader "quickrev/internal/infra/postgres"
	"quickrev/internal/infra/sqlite"

	"github.com/spf13/cobra"
)

// NewSeedCmd stores a generated flashcard file in the configured local store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var fileID, from string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a flashcard JSON file into Postgres or sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, fileID, from)
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "", "identifier to store the file under")
	cmd.Flags().StringVar(&from, "from", "", "path to the flashcard JSON payload")
	_ = cmd.MarkFlagRequired("file-id")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, fileID, from string) error {
	raw, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	records, err := domain.ParseRecords(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", from, err)
	}

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db, err := openBunDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pgloader.NewRecordWriter(db).SaveRecords(ctx, fileID, records); err != nil {
			return err
		}
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRecords(ctx, fileID, records); err != nil {
			return err
		}
	default:
		return fmt.Errorf("no local store configured: set postgres.url or sqlite.path")
	}

	log.Printf("seeded %d cards as %s", len(records), fileID)
	return nil
}
