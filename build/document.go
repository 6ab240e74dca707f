package build

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// loadDocument reads an XML or XHTML document to match selectors against.
// Unicode byte order marks are honored, everything else goes through the
// charset reader driven by document's own declaration.
func loadDocument(path string) (*etree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	n, _ := io.ReadFull(f, buf)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to rewind document: %w", err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		ValidateInput: false,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(selectReader(f, detectUTF(buf[:n]))); err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return doc, nil
}
