// Command lspconn-probe is a small demonstration consumer of lspconn: it
// spawns a language server, performs the initialize handshake, prints its
// advertised capabilities, and shuts down cleanly. It is not part of the
// library surface — lspconn itself exposes no CLI, per design — this is
// just a thin client built on top of it, the way an editor plugin would be.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lspconn/lspconn/client"
	"github.com/lspconn/lspconn/protocol"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootURI string
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "lspconn-probe -- <server> [args...]",
		Short: "Spawn a language server, initialize it, and print its capabilities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, rootURI, timeout)
		},
	}

	root.Flags().StringVar(&rootURI, "root-uri", "file://"+mustGetwd(), "rootUri to advertise in the initialize request")
	root.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout for the initialize handshake")

	return root
}

func run(ctx context.Context, argv []string, rootURI string, timeout time.Duration) error {
	c, err := client.Dial(ctx, client.CommandLine(argv), client.Config{
		Stderr: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pid := os.Getpid()
	result, err := c.Initialize(callCtx, protocol.InitializeParams{
		ProcessID: &pid,
		RootURI:   rootURI,
		Capabilities: protocol.ClientCapabilities{
			TextDocument: protocol.TextDocumentClientCapabilities{
				Hover: protocol.HoverClientCapabilities{ContentFormat: []string{"markdown", "plaintext"}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := c.Initialized(callCtx); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}

	encoded, err := json.MarshalIndent(result.Capabilities, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	_ = c.Shutdown(callCtx)
	_ = c.Exit(callCtx)
	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
