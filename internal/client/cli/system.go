package cli

import (
	"context"

	"github.com/dustin/go-humanize"
)

func (a *App) Export(ctx context.Context, args []string) error {
	path := "audit_export.zip"
	if len(args) > 0 {
		path = args[0]
	}
	res, err := a.systemService.ExportAudit(ctx, path)
	a.observe(err)
	if res.Path != "" {
		a.printf("Saved %s (%s, sha256 %s)\n", res.Path, humanize.Bytes(uint64(res.Size)), res.SHA256)
	}
	if res.ArchiveKey != "" {
		a.printf("Archived as %s\n", res.ArchiveKey)
	}
	return err
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{"upload <path>"}
	}
	art, err := a.systemService.UploadArtifact(ctx, args[0])
	a.observe(err)
	if err != nil {
		return err
	}
	a.printf("Uploaded #%d %s (%s, sha256 %s)\n", art.ID, art.Filename, humanize.Bytes(uint64(art.SizeBytes)), art.SHA256)
	return nil
}

func (a *App) PublicKey(ctx context.Context, _ []string) error {
	pem, err := a.systemService.PublicKey(ctx)
	a.observe(err)
	if err != nil {
		return err
	}
	a.printf("%s", pem)
	return nil
}
