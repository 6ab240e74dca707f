package build

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// headerProbe is how much of a file we look at when sniffing its content.
const headerProbe = 512

// definitionType identifies stylesheet definition files in the filetype
// registry. YAML carries no magic bytes so the matcher looks for the rules
// mapping every definition must have.
var definitionType = filetype.NewType("cssdef", "application/x-stylesheet-definition+yaml")

func init() {
	filetype.AddMatcher(definitionType, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("rules:")) || bytes.Contains(buf, []byte("\nrules:"))
	})
}

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// isArchiveFile checks if file is a zip archive. Extension alone proves
// nothing, content magic is consulted too.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, headerProbe)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}

	t, err := filetype.Match(buf[:n])
	if err != nil {
		return false, err
	}
	return t == matchers.TypeZip, nil
}

// isDefinitionFile checks if file looks like a stylesheet definition and
// reports the detected unicode encoding so the caller can pick a proper
// reader for it.
func isDefinitionFile(path string) (bool, srcEncoding, error) {
	if ext := filepath.Ext(path); !strings.EqualFold(ext, ".yaml") && !strings.EqualFold(ext, ".yml") {
		return false, encUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	return isDefinition(f)
}

// isDefinitionInArchive is the same check for a file inside zip archive.
func isDefinitionInArchive(f *zip.File) (bool, srcEncoding, error) {
	if ext := filepath.Ext(f.FileHeader.Name); !strings.EqualFold(ext, ".yaml") && !strings.EqualFold(ext, ".yml") {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	return isDefinition(r)
}

func isDefinition(r io.Reader) (bool, srcEncoding, error) {
	buf := make([]byte, headerProbe)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, encUnknown, err
	}
	buf = buf[:n]

	enc := detectUTF(buf)
	head := buf
	if enc != encUnknown {
		// signature check needs decoded text, partial output is good enough
		// for sniffing even when the probe cuts a rune in half
		head, _ = io.ReadAll(selectReader(bytes.NewReader(buf), enc))
	}

	t, err := filetype.Match(head)
	if err != nil {
		return false, enc, nil
	}
	return t == definitionType, enc, nil
}

// detectUTF probes the head of a file for a unicode byte order mark. The
// longer marks are checked first, UTF-16 LE BOM is a prefix of UTF-32 LE.
func detectUTF(buf []byte) srcEncoding {
	if len(buf) >= 4 {
		if isUTF32BigEndianBOM4(buf) {
			return encUTF32BigEndian
		}
		if isUTF32LittleEndianBOM4(buf) {
			return encUTF32LittleEndian
		}
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 {
		if isUTF16BigEndianBOM2(buf) {
			return encUTF16BigEndian
		}
		if isUTF16LittleEndianBOM2(buf) {
			return encUTF16LittleEndian
		}
	}
	return encUnknown
}

// Callers guarantee buffer length.

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// selectReader wraps r with a decoder matching the detected encoding, BOM
// is consumed by the decoder. Unknown encoding passes the reader through
// untouched.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		// this should never happen
		panic("unsupported encoding detected")
	}
}
