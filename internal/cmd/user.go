package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"eam/internal/platform/middleware"
)

var (
	newUsername string
	newPassword string
	newRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long:  "Create a user with the viewer, editor or admin role.",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVarP(&newUsername, "username", "u", "", "Login name")
	userCreateCmd.Flags().StringVarP(&newPassword, "password", "p", "", "Initial password")
	userCreateCmd.Flags().StringVarP(&newRole, "role", "r", middleware.RoleViewer, "Role: viewer, editor or admin")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, err := NewApp(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	user, err := app.Accounts.CreateUser(ctx, newUsername, newPassword, newRole)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.Role)
	return nil
}
