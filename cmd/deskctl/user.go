package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"catalogdesk/internal/clock"
	"catalogdesk/internal/config"
	"catalogdesk/internal/dto"
	"catalogdesk/internal/infra"
	"catalogdesk/internal/repository"
	"catalogdesk/internal/service"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage back-office users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var req dto.CreateUserRequest
	var email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user in the service database",
		Long: `Creates a user. The password is taken from --password or, when that is
empty, from DESKCTL_PASSWORD. DATABASE_URL and JWT settings come from the
usual environment / .env.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("DESKCTL_PASSWORD")
			}
			if email = strings.TrimSpace(email); email != "" {
				req.Email = &email
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			svc := service.NewAuthService(repository.NewUserRepository(db), cfg, clock.NewRealClock())

			user, err := svc.CreateUser(cmd.Context(), req)
			var ve *service.ValidationError
			if errors.As(err, &ve) {
				return fmt.Errorf("invalid user: %w", ve)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "login name")
	f.StringVar(&req.DisplayName, "name", "", "display name")
	f.StringVar(&email, "email", "", "email address (optional)")
	f.StringVar(&req.Role, "role", "editor", "editor | purchasing | admin")
	f.StringVar(&req.Password, "password", "", "password (min 8 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
