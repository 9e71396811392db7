package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shanmiteko/bili-login/internal/server"
	"github.com/shanmiteko/bili-login/internal/server/service"
	"github.com/shanmiteko/bili-login/internal/shared/log"
)

var (
	serveRPCAddr  = ""
	serveHTTPAddr = ""
)

func init() {
	serveCmd.Flags().StringVar(&serveRPCAddr, "rpc-addr", "", "gRPC listen address, overrides server.rpc_address")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "", "HTTP listen address, overrides server.http_address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the login flow over gRPC and HTTP on localhost",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f, err := newFlow(ctx)
		if err != nil {
			return err
		}
		defer f.close()

		rpcAddr := config.Server.RPCAddress
		if serveRPCAddr != "" {
			rpcAddr = serveRPCAddr
		}
		httpAddr := config.Server.HTTPAddress
		if serveHTTPAddr != "" {
			httpAddr = serveHTTPAddr
		}

		rpcLogger := log.New("rpc")
		httpLogger := log.New("http")
		srv := &server.Server{
			RPC:  server.RPCConfig{Addr: rpcAddr, Logger: &rpcLogger},
			HTTP: server.HTTPConfig{Addr: httpAddr, Logger: &httpLogger},
			FlowService: &service.FlowService{
				Flow:    f.client,
				Journal: f.attempts,
			},
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ServeRPC(ctx)
		})
		g.Go(func() error {
			return srv.ServeHTTP(ctx)
		})
		return g.Wait()
	},
}
