package packaging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/oshokin/qidev/internal/logger"
)

// errNotDirectory is returned when the project path is not a directory.
var errNotDirectory = errors.New("project path is not a directory")

// Builder produces package archives.
type Builder struct {
	log *zap.SugaredLogger
}

// NewBuilder returns a Builder logging to log.
func NewBuilder(log *zap.SugaredLogger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}

	return &Builder{log: log}
}

// Build packages projectDir into <parent>/<uuid>.pkg and returns its absolute path.
// An empty projectDir means the working directory.
func (b *Builder) Build(projectDir string) (string, error) {
	root, err := resolveProject(projectDir)
	if err != nil {
		return "", err
	}

	uuid, err := ReadIdentity(root)
	if err != nil {
		if errors.Is(err, ErrIdentityMissing) {
			b.log.Warnw("No UUID found in manifest", "project", root)
		}

		return "", err
	}

	archivePath := filepath.Join(filepath.Dir(root), ArchiveName(uuid))

	b.log.Debugw("Building package", "project", root, "uuid", uuid, "archive", archivePath)

	if err = writeArchive(root, archivePath); err != nil {
		_ = os.Remove(archivePath)

		return "", err
	}

	return archivePath, nil
}

func resolveProject(projectDir string) (string, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}

		projectDir = wd
	}

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat project: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", root, errNotDirectory)
	}

	return root, nil
}

// writeArchive zips every regular file under root into archivePath.
// WalkDir visits entries in lexical order, so identical trees give identical entry lists.
func writeArchive(root, archivePath string) (err error) {
	out, err := os.Create(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close archive: %w", closeErr)
		}
	}()

	writer := zip.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		return addFile(writer, root, path, entry)
	})
	if walkErr != nil {
		_ = writer.Close()

		return fmt.Errorf("archive %s: %w", root, walkErr)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}

func addFile(writer *zip.Writer, root, path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}

	name, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.ToSlash(name)
	header.Method = zip.Deflate

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer src.Close() //nolint:errcheck // Read-only file.

	_, err = io.Copy(dst, src)

	return err
}

// ReadArchiveIdentity returns the UUID declared by the manifest inside a built package.
func ReadArchiveIdentity(archivePath string) (string, error) {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}

	defer reader.Close() //nolint:errcheck // Read-only archive.

	for _, file := range reader.File {
		if file.Name != ManifestFilename {
			continue
		}

		manifest, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open embedded manifest: %w", err)
		}

		defer manifest.Close() //nolint:errcheck // Read-only entry.

		return parseIdentity(manifest)
	}

	return "", fmt.Errorf("%s: %w", ManifestFilename, os.ErrNotExist)
}
