package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-service/internal/application"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/seed"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load departments, knowledge articles and users from YAML (built-in data by default)",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "seed YAML file; empty uses the built-in seed")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data := seed.Default()
	if seedFile != "" {
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		defer f.Close()
		if data, err = seed.Parse(f); err != nil {
			return err
		}
	}
	db, err := application.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	res, err := seed.Apply(cmd.Context(), data, seed.Deps{
		Departments: service.NewDepartmentService(db),
		Knowledge:   service.NewKnowledgeService(db),
		Users:       service.NewUserService(db, clock.Real()),
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	slog.Info("seed: done",
		"departments", res.Departments,
		"articles", res.Articles,
		"users", res.Users,
		"skipped", res.Skipped,
	)
	return nil
}
