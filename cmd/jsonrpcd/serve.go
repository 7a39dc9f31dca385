// file: cmd/jsonrpcd/serve.go
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/demomethods"
	"github.com/dkoosis/jsonrpc2go/internal/dispatch"
	"github.com/dkoosis/jsonrpc2go/internal/framing"
	"github.com/dkoosis/jsonrpc2go/internal/httprpc"
	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

var (
	transportFlag     string
	addrFlag          string
	lineDelimiterFlag string
	namingFlag        string
	orderedFlag       bool
	cancellationFlag  bool
	shutdownTimeout   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jsonrpcd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&transportFlag, "transport", "stdio-framed", "transport: stdio-line, stdio-framed, or http")
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "listen address, when transport=http")
	serveCmd.Flags().StringVar(&lineDelimiterFlag, "line-delimiter", "", "resync delimiter line, when transport=stdio-line")
	serveCmd.Flags().StringVar(&namingFlag, "naming", "camelCase", "method naming strategy: identity or camelCase")
	serveCmd.Flags().BoolVar(&orderedFlag, "ordered", false, "write responses in request arrival order")
	serveCmd.Flags().BoolVar(&cancellationFlag, "cancellation", true, "enable the cancelRequest convention handler")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful shutdown timeout for the http transport")

	_ = viper.BindPFlag("server.transport", serveCmd.Flags().Lookup("transport"))
	_ = viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.line_delimiter", serveCmd.Flags().Lookup("line-delimiter"))
	_ = viper.BindPFlag("dispatch.naming", serveCmd.Flags().Lookup("naming"))
	_ = viper.BindPFlag("dispatch.ordered", serveCmd.Flags().Lookup("ordered"))
	_ = viper.BindPFlag("dispatch.cancellation_enabled", serveCmd.Flags().Lookup("cancellation"))
}

func runServe() error {
	logger := logging.GetLogger("serve")

	naming := namingStrategy(viper.GetString("dispatch.naming"))

	var registry *dispatch.CancellationRegistry
	if viper.GetBool("dispatch.cancellation_enabled") {
		registry = dispatch.NewCancellationRegistry()
	}

	serverContract, err := demomethods.BuildServerContract(naming, registry)
	if err != nil {
		return errors.Wrap(err, "jsonrpcd: failed to build server contract")
	}

	opts := []dispatch.Option{
		dispatch.WithOrdered(viper.GetBool("dispatch.ordered")),
		dispatch.WithLogger(logger),
	}
	if registry != nil {
		opts = append(opts, dispatch.WithCancellationRegistry(registry))
	}

	server, err := dispatch.NewServer(serverContract, opts...)
	if err != nil {
		return errors.Wrap(err, "jsonrpcd: failed to build server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	switch viper.GetString("server.transport") {
	case "stdio-line":
		return serveStdio(ctx, server, framing.NewLineDelimited(os.Stdin, os.Stdout, os.Stdin, viper.GetString("server.line_delimiter"), logger))
	case "stdio-framed":
		return serveStdio(ctx, server, framing.NewLengthPrefixed(os.Stdin, os.Stdout, os.Stdin, logger))
	case "http":
		return serveHTTP(ctx, serverContract, logger)
	default:
		return errors.Newf("jsonrpcd: unknown transport %q", viper.GetString("server.transport"))
	}
}

func serveStdio(ctx context.Context, server *dispatch.Server, framer framing.Framer) error {
	defer framer.Close()
	return server.Attach(ctx, framer)
}

func serveHTTP(ctx context.Context, serverContract *contract.ServerContract, logger logging.Logger) error {
	handler := httprpc.NewHandler(serverContract, httprpc.WithHandlerLogger(logger))

	addr := viper.GetString("http.addr")
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "jsonrpcd: failed to listen on %s", addr)
	}

	httpServer := &http.Server{Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "jsonrpcd: http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "jsonrpcd: http server shutdown failed")
	}
	logger.Info("http server stopped")
	return nil
}

func namingStrategy(kind string) contract.NamingStrategy {
	if kind == "identity" {
		return contract.IdentityNaming{}
	}
	return contract.CamelCaseNaming{}
}
