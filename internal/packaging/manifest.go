package packaging

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ManifestFilename is the manifest at the project root.
	ManifestFilename = "manifest.xml"

	// Extension is the file extension of built packages.
	Extension = ".pkg"

	uuidAttribute = "uuid"
)

var (
	// ErrIdentityMissing is returned when the manifest root has no uuid attribute.
	ErrIdentityMissing = errors.New("no UUID found")
	// errNoRootElement is returned for manifests without any element.
	errNoRootElement = errors.New("manifest has no root element")
)

// ReadIdentity returns the package UUID declared by projectDir/manifest.xml.
func ReadIdentity(projectDir string) (string, error) {
	file, err := os.Open(filepath.Join(filepath.Clean(projectDir), ManifestFilename))
	if err != nil {
		return "", fmt.Errorf("open manifest: %w", err)
	}

	defer file.Close() //nolint:errcheck // Read-only file.

	return parseIdentity(file)
}

// parseIdentity reads the uuid attribute of the first element in r.
func parseIdentity(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return "", errNoRootElement
		}

		if err != nil {
			return "", fmt.Errorf("parse manifest: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Local == uuidAttribute && strings.TrimSpace(attr.Value) != "" {
				return strings.TrimSpace(attr.Value), nil
			}
		}

		return "", ErrIdentityMissing
	}
}

// ArchiveName returns the package filename for uuid.
func ArchiveName(uuid string) string {
	return uuid + Extension
}

// UUIDFromArchiveName derives the package UUID from an archive path.
func UUIDFromArchiveName(archivePath string) string {
	return strings.TrimSuffix(filepath.Base(archivePath), Extension)
}
