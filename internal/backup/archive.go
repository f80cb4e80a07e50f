package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Archive extraction limits. Configuration archives are small; anything
// approaching these ceilings is malformed or hostile.
const (
	maxArchiveFiles     = 50000
	maxArchiveFileSize  = 512 << 20 // 512MB per file
	maxArchiveTotalSize = 2 << 30   // 2GB total extracted size
)

// createArchive writes a tar.gz of sourceDir to archivePath. Paths matching
// .gitignore files inside sourceDir or the extra patterns are skipped, and
// .git is always skipped.
func createArchive(sourceDir, archivePath string, extra []string) error {
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer file.Close()

	gw := gzip.NewWriter(file)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	matcher, err := buildMatcher(sourceDir, extra)
	if err != nil {
		return fmt.Errorf("building ignore matcher: %w", err)
	}

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		if relPath == ".git" || strings.HasPrefix(relPath, ".git"+string(filepath.Separator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(strings.Split(relPath, string(filepath.Separator)), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("reading file info for %s: %w", relPath, err)
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", relPath, err)
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("creating tar header for %s: %w", relPath, err)
		}
		header.Name = relPath
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", relPath, err)
		}

		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening file %s: %w", relPath, err)
			}
			_, copyErr := io.Copy(tw, f)
			f.Close() // Close immediately to avoid accumulating handles on big trees
			if copyErr != nil {
				return fmt.Errorf("copying file %s: %w", relPath, copyErr)
			}
		}
		return nil
	})
	if err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("walking source: %w", err)
	}
	return nil
}

// extractArchive unpacks archivePath into destDir, refusing paths or
// symlinks that escape it and enforcing the extraction limits.
func extractArchive(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	fileCount := 0
	var totalWritten int64

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		fileCount++
		if fileCount > maxArchiveFiles {
			return fmt.Errorf("archive contains too many files (limit: %d)", maxArchiveFiles)
		}

		targetPath := filepath.Join(destDir, header.Name)
		relToDest, err := filepath.Rel(destDir, targetPath)
		if err != nil || strings.HasPrefix(relToDest, "..") {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(header.Mode&0777)); err != nil {
				return fmt.Errorf("creating directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating parent directory for %s: %w", header.Name, err)
			}
			f, err := os.OpenFile(targetPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode&0777))
			if err != nil {
				return fmt.Errorf("creating file %s: %w", header.Name, err)
			}
			if totalWritten > maxArchiveTotalSize {
				_ = f.Close()
				return fmt.Errorf("archive exceeds maximum extracted size (limit: %d bytes)", int64(maxArchiveTotalSize))
			}
			written, copyErr := io.Copy(f, io.LimitReader(tr, maxArchiveFileSize))
			totalWritten += written
			if copyErr != nil {
				_ = f.Close()
				return fmt.Errorf("writing file %s: %w", header.Name, copyErr)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing file %s: %w", header.Name, err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating parent directory for symlink %s: %w", header.Name, err)
			}
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("invalid symlink in archive: absolute target not allowed: %s -> %s", header.Name, header.Linkname)
			}
			resolved := filepath.Clean(filepath.Join(filepath.Dir(targetPath), header.Linkname))
			relToDest, err := filepath.Rel(destDir, resolved)
			if err != nil || strings.HasPrefix(relToDest, "..") {
				return fmt.Errorf("invalid symlink in archive: target escapes destination: %s -> %s", header.Name, header.Linkname)
			}
			os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("creating symlink %s: %w", header.Name, err)
			}
		default:
			// Skip unsupported entry types
			continue
		}
	}
	return nil
}

// buildMatcher collects ignore patterns from .gitignore files under
// sourceDir plus the extra patterns (gitignore syntax).
func buildMatcher(sourceDir string, extra []string) (gitignore.Matcher, error) {
	patterns := make([]gitignore.Pattern, 0, len(extra)+16)

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.Name() != ".gitignore" {
			return nil
		}

		relDir, err := filepath.Rel(sourceDir, filepath.Dir(path))
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading .gitignore at %s: %w", path, err)
		}
		var domain []string
		if relDir != "." {
			domain = strings.Split(relDir, string(filepath.Separator))
		}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, pattern := range extra {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
