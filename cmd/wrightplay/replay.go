package main

import (
	"bufio"
	"io"

	"github.com/spf13/cobra"

	"github.com/wrightplay/wrightplay/internal/bridge"
)

const replayMaxBodySize = 10 * 1024 * 1024

// newReplayCmd builds the hidden `replay` subcommand: reads protocol
// frames captured from a prior run's stdin (line-delimited or
// Content-Length framed, same framing the teacher's dev-console reader
// supports) and logs each decoded message, for offline inspection of a
// failed run without re-driving a browser.
func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "replay",
		Short:  "Decode and log bridge protocol frames read from stdin",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayStdin(cmd.InOrStdin())
		},
	}
}

func replayStdin(r io.Reader) error {
	reader := bufio.NewReader(r)
	n := 0
	for {
		raw, err := bridge.ReadStdioMessage(reader, replayMaxBodySize)
		if err != nil {
			if err == io.EOF {
				rootLog.WithField("frames", n).Info("replay finished")
				return nil
			}
			return err
		}
		msg, err := bridge.DecodeMessage(raw)
		if err != nil {
			rootLog.WithError(err).WithField("raw", string(raw)).Warn("could not decode replayed frame")
			continue
		}
		n++
		rootLog.WithField("kind", msg.Kind).WithField("category", msg.Category).Info("replayed frame")
	}
}
