package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Redundando/driverator"
)

// Persistent flags, bound in newRootCmd. Together they mirror the library's
// Config.
var (
	flagCredentials string
	flagFileID      string
	flagFileName    string
	flagFolderID    string
	flagFolderName  string
	flagCachePath   string
	flagTTL         int
	flagClearCache  bool
	flagVerbose     bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "driverator",
		Short:         "Manage a single Google Drive file",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flagVerbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagCredentials, "credentials", "", "service account credential file (required)")
	cmd.PersistentFlags().StringVar(&flagFileID, "file-id", "", "remote file id")
	cmd.PersistentFlags().StringVar(&flagFileName, "file-name", "", "remote file name")
	cmd.PersistentFlags().StringVar(&flagFolderID, "folder-id", "", "parent folder id")
	cmd.PersistentFlags().StringVar(&flagFolderName, "folder-name", "", "parent folder name")
	cmd.PersistentFlags().StringVar(&flagCachePath, "cache", "", "metadata cache store path")
	cmd.PersistentFlags().IntVar(&flagTTL, "ttl", driverator.DefaultTTL, "cache time-to-live in days (0 disables caching)")
	cmd.PersistentFlags().BoolVar(&flagClearCache, "clear-cache", false, "empty the cache store before use")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.MarkPersistentFlagRequired("credentials")

	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newShareCmd())

	return cmd
}

// openFile builds and resolves a handle from the persistent flags. The
// caller owns the returned handle and must Close it.
func openFile(cmd *cobra.Command) (*driverator.File, error) {
	ttl := flagTTL
	f, err := driverator.New(cmd.Context(), driverator.Config{
		ServiceAccountFile: flagCredentials,
		FileID:             flagFileID,
		FileName:           flagFileName,
		FolderID:           flagFolderID,
		FolderName:         flagFolderName,
		ClearCache:         flagClearCache,
		TTL:                &ttl,
		CachePath:          flagCachePath,
	})
	if err != nil {
		return nil, err
	}
	if err := f.Initialize(cmd.Context()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func printMetadata(cmd *cobra.Command, f *driverator.File) error {
	meta, err := f.Metadata()
	if err != nil {
		return err
	}
	cmd.Printf("id:        %s\n", meta.ID)
	cmd.Printf("name:      %s\n", meta.Name)
	cmd.Printf("mime type: %s\n", meta.MimeType)
	cmd.Printf("size:      %d\n", meta.Size)
	cmd.Printf("created:   %s\n", meta.CreatedTime)
	cmd.Printf("modified:  %s\n", meta.ModifiedTime)
	cmd.Printf("url:       %s\n", meta.WebViewLink)
	cmd.Printf("download:  %s\n", meta.WebContentLink)
	if meta.Trashed {
		cmd.Println("trashed:   true")
	}
	return nil
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}
