package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shanmiteko/bili-login/internal/client"
	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/repository"
	"github.com/shanmiteko/bili-login/internal/client/transport"
	"github.com/shanmiteko/bili-login/internal/shared/infra"
	"github.com/shanmiteko/bili-login/internal/shared/log"
)

var (
	verbose    = false
	configPath = ""

	configRepo *repository.TOMLConfigRepository
	config     domain.Config
)

var rootCmd = &cobra.Command{
	Use:           "bililogin",
	Short:         "Password login against the bilibili passport",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		if configPath == "" {
			configPath = os.Getenv("BILILOGIN_CONFIG")
		}
		if configPath == "" {
			configPath = "bililogin.toml"
		}
		configRepo = &repository.TOMLConfigRepository{FilePath: configPath}

		var err error
		config, err = configRepo.Get()
		if err != nil {
			return err
		}

		level := config.LogLevel
		if verbose {
			level = "debug"
		}
		return log.SetLevel(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default $BILILOGIN_CONFIG or bililogin.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// flow bundles a bootstrapped client with the attempt journal it records to.
type flow struct {
	client   *client.Client
	attempts *repository.BunAttemptRepository
	close    func() error
}

func newFlow(ctx context.Context) (*flow, error) {
	logger := log.New("client")

	tr, err := transport.NewHTTPTransport(transport.HTTPConfig{
		BaseURL:   config.Passport.BaseURL,
		UserAgent: config.Passport.UserAgent,
		Timeout:   config.Passport.Timeout,
		Logger:    &logger,
	})
	if err != nil {
		return nil, err
	}

	db, err := infra.OpenSQLite(config.Journal.DSN)
	if err != nil {
		return nil, err
	}
	attempts, err := repository.NewBunAttemptRepository(ctx, db, config.Journal.MaxEntries)
	if err != nil {
		db.Close()
		return nil, err
	}

	c, err := client.New(ctx, client.Options{
		Transport: tr,
		Keep:      config.Passport.Keep,
		Attempts:  attempts,
		Logger:    &logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &flow{client: c, attempts: attempts, close: db.Close}, nil
}
