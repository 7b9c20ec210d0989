package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quillpost/internal/db"
	"github.com/spf13/cobra"
)

var initUserFlags struct {
	username string
	password string
	email    string
	admin    bool
}

var initUserCmd = &cobra.Command{
	Use:   "init-user",
	Short: "Create a user account unless it already exists",
	Long: `Creates a user with a bcrypt hashed password. Without flags the
SUPER_ROOT_USER_NAME / SUPER_ROOT_PASSWORD / SUPER_ROOT_EMAIL settings are used.

Example:
  quillpost init-user --username alice --password s3cret --email alice@example.com --admin=false`,
	RunE: runInitUser,
}

func init() {
	initUserCmd.Flags().StringVar(&initUserFlags.username, "username", "", "user name")
	initUserCmd.Flags().StringVar(&initUserFlags.password, "password", "", "plain text password")
	initUserCmd.Flags().StringVar(&initUserFlags.email, "email", "", "e-mail address used for reply notifications")
	initUserCmd.Flags().BoolVar(&initUserFlags.admin, "admin", true, "grant the beAdmin capability")
}

func runInitUser(cmd *cobra.Command, args []string) error {
	username := firstNonEmpty(initUserFlags.username, cfg.SuperRootUserName)
	password := firstNonEmpty(initUserFlags.password, cfg.SuperRootPassword)
	email := firstNonEmpty(initUserFlags.email, cfg.SuperRootEmail)
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	var count int64
	if err := db.DB.Model(&db.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		cmd.Printf("用户 %s 已存在，无需初始化\n", username)
		return nil
	}

	if err := db.EnsureUser(username, password, email, initUserFlags.admin); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	cmd.Printf("用户 %s 创建成功 (admin=%t)\n", username, initUserFlags.admin)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
