// Package ingest unpacks a frame archive into the source directory so a
// run can consume frames delivered as a single file.
package ingest

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// ExtractArchive unpacks the archive into destDir, dispatching on the
// file extension. Supported formats: .zip, .7z, .tar.gz, .tgz.
func ExtractArchive(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return ExtractZip(archivePath, destDir)
	case strings.HasSuffix(name, ".7z"):
		return Extract7z(archivePath, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return ExtractTarGz(archivePath, destDir)
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
}

// ExtractZip extracts a ZIP archive to the destination directory.
func ExtractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name == "" || file.FileInfo().IsDir() {
			continue
		}
		destPath, err := securePath(destDir, file.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		if err := writeFile(destPath, rc); err != nil {
			rc.Close()
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
		rc.Close()
	}
	return nil
}

// Extract7z extracts a 7z archive to the destination directory.
func Extract7z(archivePath, destDir string) error {
	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name == "" || file.FileInfo().IsDir() {
			continue
		}
		destPath, err := securePath(destDir, file.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		if err := writeFile(destPath, rc); err != nil {
			rc.Close()
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
		rc.Close()
	}
	return nil
}

// ExtractTarGz extracts a tar.gz archive to the destination directory.
func ExtractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		destPath, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := writeFile(destPath, tarReader); err != nil {
			return fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
	}
	return nil
}

// securePath joins an archive entry name onto destDir and rejects
// entries that would escape it.
func securePath(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(name))
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return destPath, nil
}

func writeFile(destPath string, r io.Reader) error {
	outFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
