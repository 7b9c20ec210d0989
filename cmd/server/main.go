package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/config"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	cfg config.AppConfig
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "quillpost",
	Short: "Quillpost - a small blog with comment reply notifications",
	Long: `Quillpost serves a blog: a post listing with the posts of the last week,
post pages with comments, an admin-only form for new posts, and e-mail
notifications when someone replies to a member's comment.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_FILE")
		}
		loaded, err := config.LoadFrom(path)
		if err != nil {
			return err
		}
		cfg = loaded

		built, err := logger.Initialize(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = built

		gin.SetMode(ginMode(cfg.GinMode))

		// 初始化数据库
		if err := db.Init(cfg.DatabasePath); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		log.Debug("database ready", zap.String("path", cfg.DatabasePath))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
	RunE: runServe,
}

func ginMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case gin.DebugMode:
		return gin.DebugMode
	case gin.TestMode:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, initUserCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
