package main

import (
	"fmt"
	"os"

	"clinic-backend/cmd/bootstrap"
	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-backend",
		Short: "Clinic appointment scheduling and queue API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Initialize application with all dependencies
	app, err := bootstrap.New()
	if err != nil {
		logrus.Errorf("Failed to initialize application: %v", err)
		return err
	}

	// Run the application
	app.Run()
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.MigrateUp()
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return bootstrap.MigrateDown(steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

// tokenCmd mints an access token for local testing. Production tokens come from the identity service.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawID, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")

			userID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if !entity.IsKnownRole(role) {
				return fmt.Errorf("invalid --role %q", role)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			token, _, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(userID, email, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User ID the token is issued for")
	cmd.Flags().String("role", entity.RolePatient, "Role claim: admin, doctor or patient")
	cmd.Flags().String("email", "", "Email claim")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
