package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"master-o-quizz/internal/app"
	"master-o-quizz/internal/infrastructure/config"
)

// cli 所有子命令共用的狀態；app 在 PersistentPreRunE 建立。
type cli struct {
	configPath string
	baseURL    string
	verbose    bool

	app *app.App
	out io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Command line client for the Master-O quiz API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "API base URL (overrides client.base_url)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log API traffic to stderr")

	root.AddCommand(
		c.signupCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.skillsCmd(),
		c.questionsCmd(),
		c.reportsCmd(),
	)
	return root
}

// open 載入設定、建立客戶端並還原上次的登入狀態。
func (c *cli) open(ctx context.Context) error {
	cfg, err := config.LoadFromFile(c.configPath)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.Client.BaseURL = c.baseURL
	}

	logger := slog.New(slog.DiscardHandler)
	if c.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	a, err := app.New(cfg.Client, app.WithLogger(logger))
	if err != nil {
		return err
	}
	c.app = a

	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Start(ctx); err != nil {
		// 保存的 refresh token 已失效，session 已清空，繼續以匿名身分執行。
		logger.Warn("restore session failed", "error", err)
	}
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// requireLogin 未登入時回傳提示錯誤。
func (c *cli) requireLogin() error {
	if c.app.Session.View().User == nil {
		return fmt.Errorf("not logged in; run `quizctl login` first")
	}
	return nil
}
