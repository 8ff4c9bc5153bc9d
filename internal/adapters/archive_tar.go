package adapters

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

const (
	pkgInfoEntryName  = ".PKGINFO"
	manifestEntryName = ".MTREE"
)

// TarZstdArchiver writes the package archive natively: a tar stream,
// zstd-compressed, with the metadata records first and payload entries in
// manifest order. Ownership, mode and mtime in every header come from the
// recorded attributes, never from the staged copies, which is what makes an
// unprivileged run equivalent to a fakeroot one. The archive appears at its
// final path atomically via a rename.
type TarZstdArchiver struct{}

func NewTarZstdArchiver() TarZstdArchiver {
	return TarZstdArchiver{}
}

func (a TarZstdArchiver) Create(ctx context.Context, req ports.ArchiveRequest) error {
	if err := ctx.Err(); err != nil {
		return archiveError("archive creation canceled", err)
	}
	if req.OutputPath == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return archiveError("failed to create output directory", err)
	}

	part := req.OutputPath + ".part"
	file, err := os.Create(part)
	if err != nil {
		return archiveError("failed to create "+part, err)
	}
	defer func() {
		file.Close()
		os.Remove(part)
	}()

	// Single-stream encoding keeps identical inputs producing identical
	// archives.
	encoder, err := zstd.NewWriter(file,
		zstd.WithEncoderLevel(encoderLevelFor(req.Compression)),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return archiveError("failed to initialize compressor", err)
	}
	tw := tar.NewWriter(encoder)

	if err := writeMetaEntry(tw, pkgInfoEntryName, req.PkgInfo, req.BuildDate); err != nil {
		return err
	}
	if err := writeMetaEntry(tw, manifestEntryName, req.Mtree, req.BuildDate); err != nil {
		return err
	}
	for _, entry := range req.Entries {
		if err := ctx.Err(); err != nil {
			return archiveError("archive creation canceled", err)
		}
		if err := writePayloadEntry(tw, req.StagingRoot, entry); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return archiveError("failed to finish tar stream", err)
	}
	if err := encoder.Close(); err != nil {
		return archiveError("failed to finish compression", err)
	}
	if err := file.Close(); err != nil {
		return archiveError("failed to flush "+part, err)
	}
	if err := os.Rename(part, req.OutputPath); err != nil {
		return archiveError("failed to move archive into place", err)
	}

	log.Debug().Str("archive", req.OutputPath).Int("entries", len(req.Entries)).Msg("archive written")
	return nil
}

func writeMetaEntry(tw *tar.Writer, name string, data []byte, buildDate int64) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     int64(len(data)),
		Mode:     0o644,
		Uid:      0,
		Gid:      0,
		Uname:    "root",
		Gname:    "root",
		ModTime:  time.Unix(buildDate, 0),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return archiveError("failed to write header for "+name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return archiveError("failed to write "+name, err)
	}
	return nil
}

func writePayloadEntry(tw *tar.Writer, stagingRoot string, entry types.ManifestEntry) error {
	// Whole seconds only: sub-second precision lives in the manifest, and a
	// second-granular mtime keeps headers in plain ustar for typical trees.
	hdr := &tar.Header{
		Name:    entry.Path,
		Mode:    int64(entry.Mode),
		Uid:     entry.UID,
		Gid:     entry.GID,
		ModTime: time.Unix(entry.MTimeSec, 0),
	}
	if entry.UID == 0 {
		hdr.Uname = "root"
	}
	if entry.GID == 0 {
		hdr.Gname = "root"
	}

	switch entry.Kind {
	case types.EntryKindDir:
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
	case types.EntryKindLink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = entry.LinkTarget
	case types.EntryKindFifo:
		hdr.Typeflag = tar.TypeFifo
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = entry.Size
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return archiveError("failed to write header for "+entry.Path, err)
	}
	if entry.Kind != types.EntryKindFile {
		return nil
	}

	staged, err := os.Open(filepath.Join(stagingRoot, entry.Path))
	if err != nil {
		return archiveError("failed to open staged "+entry.Path, err)
	}
	defer staged.Close()
	if _, err := io.Copy(tw, staged); err != nil {
		return archiveError("failed to archive "+entry.Path, err)
	}
	return nil
}

func encoderLevelFor(level types.CompressionLevel) zstd.EncoderLevel {
	switch level {
	case types.CompressionFastest:
		return zstd.SpeedFastest
	case types.CompressionBetter:
		return zstd.SpeedBetterCompression
	case types.CompressionBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func archiveError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.Archiver = TarZstdArchiver{}
