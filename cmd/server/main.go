package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title           zChat Live API
// @version         1.0
// @description     Real-time chat backend: chats, messages, read receipts and live delivery.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zchat",
		Short:         "zChat live chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCmd()
	root.AddCommand(serve, newMigrateCmd())
	// Running the bare binary starts the server.
	root.RunE = serve.RunE
	return root
}
