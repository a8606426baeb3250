package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shelf-labs/shelfctl/internal/browse"
	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/util/sizes"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage files on the Shelf server",
	}
	cmd.AddCommand(
		newFilesListCmd(),
		newFilesUploadCmd(),
		newFilesDownloadCmd(),
		newFilesRenameCmd(),
		newFilesDeleteCmd(),
	)
	return cmd
}

func newFilesListCmd() *cobra.Command {
	var (
		limit  int
		offset int
		sort   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			page, err := app.Client.ListFiles(cmd.Context(), models.PageQuery{
				Limit:  limit,
				Offset: offset,
				Sort:   models.SortOrder(sort),
			})
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Size", "Type", "Created"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			for _, item := range page.Items {
				contentType := item.ContentType
				if contentType == "" {
					contentType = "Unknown"
				}
				table.Append([]string{
					item.ID,
					item.DisplayName,
					sizes.Human(item.Size),
					contentType,
					item.CreatedAt.Local().Format(time.DateTime),
				})
			}
			table.Render()
			fmt.Printf("%d of %d file(s)\n", len(page.Items), page.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of files to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Listing offset")
	cmd.Flags().StringVar(&sort, "sort", "desc", "Sort by creation time (asc or desc)")
	return cmd
}

func newFilesUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			bar := newUploadBar()
			app.Uploader.OnProgress(func(name string, percent int) {
				_ = bar.Set(percent)
			})

			if err := app.Uploader.Upload(cmd.Context(), args[0]); err != nil {
				fmt.Fprintln(os.Stderr)
				// The pipeline already shaped the user-facing text.
				if msg := app.View.UploadFeedback(); msg != "" {
					return fmt.Errorf("%s", msg)
				}
				return err
			}
			fmt.Fprintln(os.Stderr)
			fmt.Println("Upload complete.")
			return nil
		},
	}
	return cmd
}

func newUploadBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func newFilesDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := findFile(cmd, app, args[0])
			if err != nil {
				return err
			}
			path, err := app.Downloader.Save(cmd.Context(), rec, outputDir)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Output directory")
	return cmd
}

func newFilesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <file-id> <new-name>",
		Short: "Change a file's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Client.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Renamed.")
			return nil
		},
	}
}

func newFilesDeleteCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := findFile(cmd, app, args[0])
			if err != nil {
				return err
			}
			if !skipConfirm && !confirm(fmt.Sprintf("Delete %s?", rec.DisplayName)) {
				return nil
			}
			if err := app.Client.Delete(cmd.Context(), rec.ID); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConfirm, "confirm", false, "Skip confirmation prompt")
	return cmd
}

// findFile resolves a file id against the collection, paging until found.
func findFile(cmd *cobra.Command, app *browse.App, fileID string) (models.FileRecord, error) {
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		page, err := app.Client.ListFiles(cmd.Context(), models.PageQuery{
			Limit:  pageSize,
			Offset: offset,
			Sort:   models.SortDesc,
		})
		if err != nil {
			return models.FileRecord{}, err
		}
		for _, item := range page.Items {
			if item.ID == fileID {
				return item, nil
			}
		}
		if offset+pageSize >= page.Total || len(page.Items) == 0 {
			return models.FileRecord{}, fmt.Errorf("no file with id %s", fileID)
		}
	}
}
