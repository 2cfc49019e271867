package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsearch-core/docsearch/internal/imageproc"
	"github.com/docsearch-core/docsearch/internal/ingest"
	"github.com/docsearch-core/docsearch/internal/model"
)

func newIngestCmd() *cobra.Command {
	var (
		tenantID string
		ownerID  string
		uri      string
		name     string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a single file as a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			if uri == "" {
				uri = "file://" + path
			}
			if name == "" {
				name = filepath.Base(path)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			a, err := newApp(flagDataDir, flagDebug)
			if err != nil {
				return err
			}
			defer a.close()

			fileType := detectFileKind(path)
			req := ingestRequestFor(a, tenantID, ownerID, uri, name, tags, fileType, raw)

			resource, err := a.pipeline.Ingest(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingested %s as resource %s (%d bytes, vendor=%q)\n",
				uri, resource.ResourceID, resource.SizeBytes, resource.Vendor)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id")
	cmd.Flags().StringVar(&uri, "uri", "", "resource uri (default: file://<path>)")
	cmd.Flags().StringVar(&name, "name", "", "resource display name (default: file basename)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")

	return cmd
}

func detectFileKind(path string) model.FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return model.FileKindPDF
	case ".csv":
		return model.FileKindCSV
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return model.FileKindImage
	case ".txt", ".md":
		return model.FileKindText
	default:
		return model.FileKindOther
	}
}

func ingestRequestFor(a *app, tenantID, ownerID, uri, name string, tags []string, fileType model.FileKind, raw []byte) ingest.Request {
	req := ingest.Request{
		TenantID: tenantID, OwnerID: ownerID, URI: uri, Name: name,
		MimeType: mime.TypeByExtension(filepath.Ext(uri)), FileType: fileType, Tags: tags, Raw: raw,
	}
	if fileType == model.FileKindImage {
		// No OCR/caption collaborator is wired at the CLI layer; imageproc
		// degrades both to empty output and, with the caption empty, makes
		// no caption embedding, matching Process's documented zero-value
		// contract.
		processor := imageproc.New(nil, nil, a.embedder, a.logger)
		req.Image = processor.Process(context.Background(), raw, req.MimeType)
	}
	return req
}
