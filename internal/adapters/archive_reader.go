package adapters

import (
	"archive/tar"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

// TarZstdReader streams a package archive back: metadata records are
// captured raw, payload members are re-hashed while reading. It never
// extracts anything to disk.
type TarZstdReader struct{}

func NewTarZstdReader() TarZstdReader {
	return TarZstdReader{}
}

func (r TarZstdReader) Read(ctx context.Context, path string) (ports.ArchiveContent, error) {
	file, err := os.Open(path)
	if err != nil {
		return ports.ArchiveContent{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open archive " + path).
			WithCause(err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return ports.ArchiveContent{}, readError("archive is not zstd compressed", err)
	}
	defer decoder.Close()

	content := ports.ArchiveContent{}
	tr := tar.NewReader(decoder)
	for {
		if err := ctx.Err(); err != nil {
			return ports.ArchiveContent{}, readError("archive read canceled", err)
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ports.ArchiveContent{}, readError("failed to read archive member", err)
		}

		switch hdr.Name {
		case pkgInfoEntryName:
			content.PkgInfo, err = io.ReadAll(tr)
		case manifestEntryName:
			content.Mtree, err = io.ReadAll(tr)
		default:
			var entry types.ManifestEntry
			var ok bool
			entry, ok, err = observeMember(hdr, tr)
			if ok {
				content.Entries = append(content.Entries, entry)
			}
		}
		if err != nil {
			return ports.ArchiveContent{}, readError("failed to read archive member "+hdr.Name, err)
		}
	}
	return content, nil
}

// observeMember converts one payload member into a manifest-shaped record,
// hashing file content in the same pass. Member kinds this tool never writes
// are skipped.
func observeMember(hdr *tar.Header, tr *tar.Reader) (types.ManifestEntry, bool, error) {
	entry := types.ManifestEntry{
		Path:     strings.TrimSuffix(hdr.Name, "/"),
		UID:      hdr.Uid,
		GID:      hdr.Gid,
		Mode:     uint32(hdr.Mode) & 0o7777,
		MTimeSec: hdr.ModTime.Unix(),
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		entry.Kind = types.EntryKindDir
	case tar.TypeSymlink:
		entry.Kind = types.EntryKindLink
		entry.LinkTarget = hdr.Linkname
	case tar.TypeFifo:
		entry.Kind = types.EntryKindFifo
	case tar.TypeReg:
		entry.Kind = types.EntryKindFile
		entry.Size = hdr.Size
		md5Hash := md5.New()
		shaHash := sha256.New()
		if _, err := io.Copy(io.MultiWriter(md5Hash, shaHash), tr); err != nil {
			return types.ManifestEntry{}, false, err
		}
		entry.MD5 = hex.EncodeToString(md5Hash.Sum(nil))
		entry.SHA256 = hex.EncodeToString(shaHash.Sum(nil))
	default:
		return types.ManifestEntry{}, false, nil
	}
	return entry, true, nil
}

func readError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ArchiveReader = TarZstdReader{}
