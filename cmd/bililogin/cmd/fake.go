package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shanmiteko/bili-login/internal/fakepassport"
	"github.com/shanmiteko/bili-login/internal/shared/infra"
	"github.com/shanmiteko/bili-login/internal/shared/log"
)

var (
	fakeAddr     = "127.0.0.1:7703"
	fakeKeyPath  = ""
	fakeAccounts = []string{}
)

func init() {
	flags := fakeCmd.Flags()
	flags.StringVarP(&fakeAddr, "addr", "a", fakeAddr, "listen address")
	flags.StringVarP(&fakeKeyPath, "key", "k", "", "PEM private key, created when missing; in-memory when empty")
	flags.StringArrayVar(&fakeAccounts, "account", []string{"test:test"}, "accepted account as name:password, repeatable")
	rootCmd.AddCommand(fakeCmd)
}

var fakeCmd = &cobra.Command{
	Use:   "fake",
	Short: "Run a local stand-in for the passport login endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger := log.New("fake")

		accounts := make([]fakepassport.Account, 0, len(fakeAccounts))
		for _, a := range fakeAccounts {
			name, password, ok := strings.Cut(a, ":")
			if !ok || name == "" || password == "" {
				return fmt.Errorf("invalid account %q, expected name:password", a)
			}
			accounts = append(accounts, fakepassport.Account{Username: name, Password: password})
		}

		key, err := fakepassport.EnsureKey(fakeKeyPath, fakepassport.DefaultKeyBits, &logger)
		if err != nil {
			return err
		}

		db, err := infra.OpenSQLite("file:fakepassport?mode=memory&cache=shared")
		if err != nil {
			return err
		}
		defer db.Close()
		challenges, err := fakepassport.NewBunChallengeRepository(ctx, db)
		if err != nil {
			return err
		}

		svc, err := fakepassport.NewService(fakepassport.Config{
			Key:        key,
			Accounts:   accounts,
			Challenges: challenges,
			Logger:     &logger,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{Addr: fakeAddr, Handler: svc.Handler()}
		go func() {
			<-ctx.Done()
			logger.Info().Msg("shutting down")
			srv.Shutdown(context.Background())
		}()

		logger.Info().
			Str("address", fakeAddr).
			Int("accounts", len(accounts)).
			Msg("started server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
