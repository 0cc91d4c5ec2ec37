package main

import (
	"github.com/spf13/cobra"

	"handoff/internal/daemonctl"
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			coord.Status(cmd.Context())
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon unless it is already running",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			_, err = coord.Start(cmd.Context())
			return err
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the daemon to shut down",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			_, err = coord.Stop(cmd.Context())
			return err
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon, wait for it to exit, and launch a new one",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			_, err = coord.Restart(cmd.Context())
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show client and daemon versions",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			return coord.Version(cmd.Context(), daemonctl.AppInfo{
				Name:    appName,
				Version: version,
				Author:  appAuthor,
			})
		},
	}

	return []*cobra.Command{statusCmd, startCmd, stopCmd, restartCmd, versionCmd}
}

func newEchoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "echo [words...]",
		Short: "Send text to the daemon and print its echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			_, err = coord.Echo(cmd.Context(), args)
			return err
		},
	}
}
