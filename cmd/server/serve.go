package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quillpost/internal/config"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/handler"
	"github.com/quillpost/internal/mailer"
	"github.com/quillpost/internal/router"
	"github.com/quillpost/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the reply notification dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword, cfg.SuperRootEmail, true); err != nil {
		return fmt.Errorf("ensure super root user: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls := service.NewURLBuilder(cfg.SiteBaseURL)
	composer := mailer.NewReplyComposer(mailer.Sender{Address: cfg.Mail.From, Name: cfg.Mail.FromName}, urls)
	dispatcher := mailer.NewDispatcher(db.DB, composer, newTransport(cfg.Mail), mailer.DispatcherConfig{
		Workers:      cfg.Mail.Workers,
		MaxAttempts:  cfg.Mail.MaxAttempts,
		SendTimeout:  cfg.Mail.Timeout,
		PollInterval: cfg.Mail.PollInterval,
	}, log.Named("mailer"))

	api := handler.NewAPI(
		service.NewPostService(db.DB, service.RoleAuthorizer{}, service.WithPageSize(cfg.PageSize)),
		service.NewCommentService(db.DB, dispatcher, log.Named("comments")),
		service.NewUserService(db.DB),
		handler.Options{Logger: log.Named("http")},
	)

	// 设置 Gin 路由
	r, err := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		Logger:        log.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.ListenAddr), zap.String("base_url", cfg.SiteBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newTransport 未配置 SMTP 主机时只把邮件写入日志。
func newTransport(mail config.MailConfig) mailer.Transport {
	if strings.TrimSpace(mail.SMTPHost) == "" {
		log.Warn("SMTP_HOST is empty, reply notifications will only be logged")
		return mailer.LogTransport{Log: log.Named("mailer")}
	}
	return mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     mail.SMTPHost,
		Port:     mail.SMTPPort,
		Username: mail.Username,
		Password: mail.Password,
	}, log.Named("smtp"))
}
