package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/storage"
)

var uploadFlags struct {
	file   string
	object string
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a local textbook PDF to the bucket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return eris.Wrap(err, "init object storage")
		}
		object := uploadFlags.object
		if object == "" {
			object = filepath.Base(uploadFlags.file)
		}
		if err := store.Upload(ctx, object, uploadFlags.file); err != nil {
			return eris.Wrap(err, "upload textbook")
		}
		log.Infow("textbook uploaded", "object", object, "bucket", cfg.MinIO.BucketName)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFlags.file, "file", "", "path to the PDF file (required)")
	uploadCmd.Flags().StringVar(&uploadFlags.object, "object", "", "object name; defaults to the file name")
	_ = uploadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(uploadCmd)
}
