package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"

	"pacrepack/internal/types"
)

const mtreeHeader = "#mtree"

// mtreeDefaults mirrors the /set line emitted at the top of every manifest.
// Entries only carry keywords that differ from these values.
var mtreeDefaults = types.ManifestEntry{
	Kind: types.EntryKindFile,
	UID:  0,
	GID:  0,
	Mode: 0o644,
}

type MtreeCodec struct{}

func NewMtreeCodec() MtreeCodec {
	return MtreeCodec{}
}

// Render serializes manifest entries as a gzip-compressed mtree document.
// Entries are written in the order given; the caller is responsible for
// producing a deterministic order.
func (c MtreeCodec) Render(entries []types.ManifestEntry) ([]byte, error) {
	var text strings.Builder
	text.WriteString(mtreeHeader)
	text.WriteString("\n")
	fmt.Fprintf(&text, "/set type=%s uid=%d gid=%d mode=%s\n",
		mtreeDefaults.Kind, mtreeDefaults.UID, mtreeDefaults.GID, renderOctal(mtreeDefaults.Mode))
	for _, entry := range entries {
		text.WriteString(renderMtreeLine(entry))
		text.WriteString("\n")
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(text.String())); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to compress manifest").
			WithCause(err)
	}
	if err := gz.Close(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finish manifest compression").
			WithCause(err)
	}
	return buf.Bytes(), nil
}

func renderMtreeLine(entry types.ManifestEntry) string {
	fields := []string{"./" + visEncode(entry.Path)}
	fields = append(fields, fmt.Sprintf("time=%d.%d", entry.MTimeSec, entry.MTimeNsec))
	if entry.Mode != mtreeDefaults.Mode {
		fields = append(fields, "mode="+renderOctal(entry.Mode))
	}
	if entry.GID != mtreeDefaults.GID {
		fields = append(fields, "gid="+strconv.Itoa(entry.GID))
	}
	if entry.UID != mtreeDefaults.UID {
		fields = append(fields, "uid="+strconv.Itoa(entry.UID))
	}
	if entry.Kind != mtreeDefaults.Kind {
		fields = append(fields, "type="+string(entry.Kind))
	}
	if entry.Kind == types.EntryKindFile {
		fields = append(fields, "size="+strconv.FormatInt(entry.Size, 10))
	}
	if entry.Kind == types.EntryKindLink {
		fields = append(fields, "link="+visEncode(entry.LinkTarget))
	}
	if entry.Kind == types.EntryKindFile {
		fields = append(fields, "md5digest="+entry.MD5)
		fields = append(fields, "sha256digest="+entry.SHA256)
	}
	return strings.Join(fields, " ")
}

// Parse reads a gzip-compressed mtree document back into manifest entries,
// applying /set defaults and decoding vis-escaped paths. Unknown keywords
// are ignored.
func (c MtreeCodec) Parse(data []byte) ([]types.ManifestEntry, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest is not gzip compressed").
			WithCause(err)
	}
	defer gz.Close()

	text, err := io.ReadAll(gz)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to decompress manifest").
			WithCause(err)
	}

	defaults := mtreeDefaults
	var entries []types.ManifestEntry
	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "/set"):
			if err := applyMtreeKeywords(&defaults, strings.Fields(line)[1:]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "./"):
			fields := strings.Fields(line)
			entry := defaults
			entry.Path = visDecode(strings.TrimPrefix(fields[0], "./"))
			if err := applyMtreeKeywords(&entry, fields[1:]); err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		default:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unexpected manifest line: " + line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to scan manifest").
			WithCause(err)
	}
	return entries, nil
}

func applyMtreeKeywords(entry *types.ManifestEntry, keywords []string) error {
	for _, keyword := range keywords {
		parts := strings.SplitN(keyword, "=", 2)
		if len(parts) != 2 {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid manifest keyword: " + keyword)
		}
		key, value := parts[0], parts[1]
		var err error
		switch key {
		case "type":
			entry.Kind = types.EntryKind(value)
		case "uid":
			entry.UID, err = strconv.Atoi(value)
		case "gid":
			entry.GID, err = strconv.Atoi(value)
		case "mode":
			var mode uint64
			mode, err = strconv.ParseUint(value, 8, 32)
			entry.Mode = uint32(mode)
		case "time":
			sec, nsec, found := strings.Cut(value, ".")
			entry.MTimeSec, err = strconv.ParseInt(sec, 10, 64)
			if err == nil && found {
				entry.MTimeNsec, err = strconv.ParseInt(nsec, 10, 64)
			}
		case "size":
			entry.Size, err = strconv.ParseInt(value, 10, 64)
		case "link":
			entry.LinkTarget = visDecode(value)
		case "md5digest":
			entry.MD5 = value
		case "sha256digest":
			entry.SHA256 = value
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid manifest keyword value: " + keyword).
				WithCause(err)
		}
	}
	return nil
}

func renderOctal(mode uint32) string {
	return strconv.FormatUint(uint64(mode), 8)
}

// visEncode escapes bytes that would break the whitespace-delimited manifest
// grammar as three-digit octal sequences.
func visEncode(path string) string {
	var builder strings.Builder
	for _, b := range []byte(path) {
		if visUnsafe(b) {
			fmt.Fprintf(&builder, "\\%03o", b)
			continue
		}
		builder.WriteByte(b)
	}
	return builder.String()
}

func visUnsafe(b byte) bool {
	if b <= 0x20 || b >= 0x7f {
		return true
	}
	switch b {
	case '\\', '#', '*', '?', '[', ']':
		return true
	}
	return false
}

func visDecode(encoded string) string {
	var builder strings.Builder
	for i := 0; i < len(encoded); i++ {
		if encoded[i] == '\\' && i+3 < len(encoded) && isOctal(encoded[i+1]) && isOctal(encoded[i+2]) && isOctal(encoded[i+3]) {
			value, err := strconv.ParseUint(encoded[i+1:i+4], 8, 8)
			if err == nil {
				builder.WriteByte(byte(value))
				i += 3
				continue
			}
		}
		builder.WriteByte(encoded[i])
	}
	return builder.String()
}

func isOctal(b byte) bool {
	return b >= '0' && b <= '7'
}
