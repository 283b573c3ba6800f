package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/termplay/internal/ipc"
)

func ctlCommand(c *cli) *cobra.Command {
	var timeout time.Duration

	names := make([]string, 0, len(ipc.Commands()))
	for _, cmd := range ipc.Commands() {
		names = append(names, string(cmd))
	}

	cmd := &cobra.Command{
		Use:       "ctl <command>",
		Short:     "Control a running player",
		Long:      "Send a command to a running player over its control socket.\nCommands: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := parseCommand(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			client := ipc.NewClient(c.manager.Get().Control.Socket)

			if command == ipc.CmdStatus {
				st, err := client.Status(ctx)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				return printStatus(cmd.OutOrStdout(), st)
			}

			if _, err := client.Send(ctx, command); err != nil {
				return err
			}
			if !c.jsonOut {
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println(string(command))
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "command timeout")

	return cmd
}

func parseCommand(s string) (ipc.CommandType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "previous":
		s = string(ipc.CmdPrev)
	case "toggle", "pause", "play":
		s = string(ipc.CmdPlayPause)
	}
	for _, cmd := range ipc.Commands() {
		if string(cmd) == s {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", s)
}

func printStatus(w io.Writer, st *ipc.StatusResponse) error {
	data := pterm.TableData{
		{"state", st.State},
		{"track", fmt.Sprintf("%d/%d %s", st.Index+1, st.Total, st.Track)},
		{"title", st.Title},
		{"artist", st.Artist},
		{"album", st.Album},
	}
	if st.Index < 0 {
		data[1][1] = fmt.Sprintf("-/%d", st.Total)
	}
	return pterm.DefaultTable.WithWriter(w).WithData(data).Render()
}
