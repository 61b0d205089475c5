package main

import (
	"time"

	"github.com/spf13/cobra"

	"ethlogix/logix"
)

// connectFlags holds the connection parameters shared by every subcommand
// that opens a session to a controller.
type connectFlags struct {
	slot      byte
	backplane byte
	port      uint16
	timeout   time.Duration
	ctx       string
}

func addConnectFlags(cmd *cobra.Command, f *connectFlags) {
	cmd.Flags().Uint8Var(&f.slot, "slot", 0, "Backplane slot of the controller")
	cmd.Flags().Uint8Var(&f.backplane, "backplane", 1, "Backplane number, for routed connections")
	cmd.Flags().Uint16Var(&f.port, "port", 0xAF12, "EtherNet/IP TCP port")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Second, "Request timeout")
	cmd.Flags().StringVar(&f.ctx, "context", "", "Sender context echoed in encapsulation replies")
}

// connect dials the controller at address using the flags collected above.
func connect(address string, f *connectFlags) (*logix.Client, error) {
	opts := []logix.Option{
		logix.WithTimeout(f.timeout),
		logix.WithPort(f.port),
	}
	if f.ctx != "" {
		opts = append(opts, logix.WithContext(f.ctx))
	}
	if f.slot != 0 || f.backplane != 1 {
		opts = append(opts, logix.WithBackplaneSlot(f.backplane, f.slot))
	}
	return logix.Connect(address, opts...)
}
