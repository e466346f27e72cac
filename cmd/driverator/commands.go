package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Redundando/driverator"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the remote file's metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			return printMetadata(cmd, f)
		},
	}
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-path>",
		Short: "Create the remote file from a local path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.Upload(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printMetadata(cmd, f)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <local-path>",
		Short: "Replace the remote file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.Update(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printMetadata(cmd, f)
		},
	}
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <local-path>",
		Short: "Download the remote file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			return f.Download(cmd.Context(), args[0])
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <new-name>",
		Short: "Rename the remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			return f.Rename(cmd.Context(), args[0])
		},
	}
}

func newMoveCmd() *cobra.Command {
	var (
		targetID   string
		targetName string
	)
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move the remote file into another folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if targetID == "" && targetName == "" {
				return fmt.Errorf("either --to-folder-id or --to-folder-name is required")
			}
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			return f.Move(cmd.Context(), targetID, targetName)
		},
	}
	cmd.Flags().StringVar(&targetID, "to-folder-id", "", "target folder id")
	cmd.Flags().StringVar(&targetName, "to-folder-name", "", "target folder name (created if absent)")
	return cmd
}

func newRmCmd() *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Move the remote file to the trash, or delete it permanently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			return f.Delete(cmd.Context(), permanent)
		},
	}
	cmd.Flags().BoolVar(&permanent, "permanent", false, "delete permanently instead of trashing")
	return cmd
}

func newShareCmd() *cobra.Command {
	var (
		role   string
		anyone bool
	)
	cmd := &cobra.Command{
		Use:   "share [email...]",
		Short: "Grant access to the remote file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !anyone && len(args) == 0 {
				return fmt.Errorf("provide at least one email address or --anyone")
			}
			f, err := openFile(cmd)
			if err != nil {
				return err
			}
			defer f.Close()
			if anyone {
				if err := f.SetAnyoneAccess(cmd.Context(), driverator.Role(role)); err != nil {
					return err
				}
			}
			if len(args) > 0 {
				if err := f.Share(cmd.Context(), args, driverator.Role(role)); err != nil {
					return err
				}
			}
			url, err := f.URL()
			if err != nil {
				return err
			}
			cmd.Println(url)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(driverator.RoleReader), "role to grant (reader, writer, commenter)")
	cmd.Flags().BoolVar(&anyone, "anyone", false, "grant access to anyone with the link")
	return cmd
}
