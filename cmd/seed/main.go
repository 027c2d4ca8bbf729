package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"filedrop/internal/config"
	"filedrop/internal/database"
	"filedrop/internal/domain"
	"filedrop/internal/domain/auth"
	jwtsvc "filedrop/internal/pkg/jwt"
	"filedrop/internal/pkg/logger"
	"filedrop/internal/pkg/validator"
	"filedrop/internal/repository"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Create users and mint bearer tokens for local use",
		SilenceUsage: true,
	}
	root.AddCommand(newUserCmd(), newTokenCmd())
	return root
}

type newUserInput struct {
	Username string `validate:"required,min=3,max=64"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FullName string `validate:"max=128"`
}

func newUserCmd() *cobra.Command {
	var username, email, password, fullName string

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create a user and print a token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := newUserInput{Username: username, Email: email, Password: password, FullName: fullName}
			if err := validator.Error(in); err != nil {
				return err
			}
			cfg, repo, err := setup()
			if err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			u := &domain.User{
				Username:     username,
				Email:        email,
				PasswordHash: hash,
				FullName:     fullName,
			}
			if err := repo.Create(cmd.Context(), u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(u.ID)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			logger.Log.WithField("user_id", u.ID).Info("user created")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "plain-text password")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := setup()
			if err != nil {
				return err
			}
			if _, err := repo.GetByID(cmd.Context(), userID); err != nil {
				return fmt.Errorf("load user %d: %w", userID, err)
			}

			token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(userID)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "id of the user")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func setup() (*config.Config, *repository.UserRepository, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, repository.NewUserRepository(db), nil
}
