package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/chat"
	"github.com/jonwraymond/chatguard/guard"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload files through the request guard",
	Long: `Upload each file to {api.base_url}/uploads. Every upload passes the
request guard, so a file named twice is sent once and the repeat is reported
as a duplicate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	uploader := chat.NewUploader(app.newClient(), app.newGuard())
	out := cmd.OutOrStdout()

	var failed []error
	for _, path := range args {
		err := uploadFile(cmd, uploader, path)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s: uploaded\n", path)
		case errors.Is(err, guard.ErrDuplicate), errors.Is(err, guard.ErrInFlight):
			fmt.Fprintf(out, "%s: skipped (%v)\n", path, err)
		default:
			fmt.Fprintf(out, "%s: failed: %v\n", path, err)
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

func uploadFile(cmd *cobra.Command, uploader *chat.Uploader, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return err
	}
	f := guard.File{Name: info.Name(), Size: info.Size(), LastModified: info.ModTime()}
	return uploader.Upload(cmd.Context(), f, fh)
}
