package exchange

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/portal/backend/internal/application/importer"
	"go.uber.org/zap"
)

// extractedMarker is written after a successful unpack. Its presence makes
// repeated staging of the same archive a no-op, so worker retries never
// unpack twice.
const extractedMarker = ".extracted"

// transientError marks staging failures worth retrying: the archive may
// still be uploading, or the filesystem hiccuped
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether a staging error is worth retrying
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// FileStager unpacks uploaded exchange archives into per-archive staging
// directories
type FileStager struct {
	uploadDir  string
	stagingDir string
	logger     *zap.Logger
}

// NewFileStager creates a new FileStager
func NewFileStager(uploadDir, stagingDir string, logger *zap.Logger) *FileStager {
	return &FileStager{
		uploadDir:  uploadDir,
		stagingDir: stagingDir,
		logger:     logger,
	}
}

// Stage unpacks archiveName from the upload directory and returns the
// directory holding its files. An already-staged archive is detected by the
// completion marker and returned without re-unpacking.
func (s *FileStager) Stage(ctx context.Context, archiveName string) (string, error) {
	if filepath.Base(archiveName) != archiveName {
		return "", fmt.Errorf("invalid archive name %q", archiveName)
	}

	target := filepath.Join(s.stagingDir, strings.TrimSuffix(archiveName, filepath.Ext(archiveName)))
	marker := filepath.Join(target, extractedMarker)

	if _, err := os.Stat(marker); err == nil {
		s.logger.Debug("Archive already staged", zap.String("archive", archiveName))
		return target, nil
	}

	source := filepath.Join(s.uploadDir, archiveName)
	reader, err := zip.OpenReader(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The upload may still be in flight
			return "", &transientError{err: fmt.Errorf("archive %s not found: %w", archiveName, err)}
		}
		if errors.Is(err, zip.ErrFormat) {
			return "", fmt.Errorf("archive %s is corrupt: %w", archiveName, err)
		}
		return "", &transientError{err: fmt.Errorf("failed to open archive %s: %w", archiveName, err)}
	}
	defer reader.Close()

	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", &transientError{err: fmt.Errorf("failed to create staging dir: %w", err)}
	}

	for _, file := range reader.File {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if err := s.extractFile(file, target); err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(marker, []byte{}, 0o644); err != nil {
		return "", &transientError{err: fmt.Errorf("failed to write completion marker: %w", err)}
	}

	s.logger.Info("Archive staged",
		zap.String("archive", archiveName),
		zap.Int("files", len(reader.File)),
	)
	return target, nil
}

func (s *FileStager) extractFile(file *zip.File, target string) error {
	// Reject entries escaping the staging dir
	dest := filepath.Join(target, filepath.Clean(file.Name))
	if !strings.HasPrefix(dest, filepath.Clean(target)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes staging directory", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &transientError{err: fmt.Errorf("failed to create dir for %s: %w", file.Name, err)}
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to read archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &transientError{err: fmt.Errorf("failed to create %s: %w", dest, err)}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &transientError{err: fmt.Errorf("failed to extract %s: %w", file.Name, err)}
	}
	return nil
}

var _ importer.Stager = (*FileStager)(nil)
