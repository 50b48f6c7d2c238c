package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrBlockedExt    = errors.New("file extension is blocked")
	ErrObjectExists  = errors.New("object already exists")
)

// MaxFileSize is the maximum allowed file size (25 MB)
const MaxFileSize = 25 * 1024 * 1024

// BlockedExtensions contains file extensions that are not allowed
var BlockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".pif": true, ".scr": true, ".vbs": true, ".js": true,
	".jar": true, ".ps1": true, ".sh": true, ".bash": true,
	".msi": true, ".dll": true, ".sys": true,
}

// ObjectStorage defines the interface for file and derived-asset storage.
// Save stores content under a generated name; Upload writes to an exact
// path with optional upsert, which is what derived assets (converted PDF
// pages) use so a retried conversion overwrites instead of accumulating.
type ObjectStorage interface {
	Save(filename string, content io.Reader) (string, error)
	Upload(path string, content io.Reader, contentType string, upsert bool) (string, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
	PublicURL(filePath string) string
}

// localStorage implements ObjectStorage using the local filesystem
type localStorage struct {
	basePath      string
	publicBaseURL string
}

// NewLocalStorage creates a new localStorage instance. publicBaseURL is
// prepended to stored paths when building public URLs.
func NewLocalStorage(basePath, publicBaseURL string) (ObjectStorage, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localStorage{
		basePath:      basePath,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localStorage) validatePath(filePath string) (string, error) {
	// Clean the path
	cleanPath := filepath.Clean(filePath)

	// Prevent absolute paths
	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}

	// Prevent path traversal
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	// Build full path
	fullPath := filepath.Join(s.basePath, cleanPath)

	// Get absolute paths for comparison
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	// Security check: ensure file is within allowed directory
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) &&
		absPath != absBase {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// ValidateFile checks file extension and size
func ValidateFile(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if BlockedExtensions[ext] {
		return ErrBlockedExt
	}

	if size > MaxFileSize {
		return ErrFileTooLarge
	}

	return nil
}

// Save stores a file under a generated unique name and returns the relative path
func (s *localStorage) Save(filename string, content io.Reader) (string, error) {
	// Generate unique filename to prevent conflicts
	ext := filepath.Ext(filename)
	uniqueName := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	// Create subdirectory based on first 2 chars of UUID for better distribution
	subDir := uniqueName[:2]
	filePath := filepath.Join(subDir, uniqueName)

	return s.write(filePath, content)
}

// Upload stores content at the exact path. With upsert an existing object
// is overwritten; without it the call fails if the object exists.
func (s *localStorage) Upload(path string, content io.Reader, contentType string, upsert bool) (string, error) {
	fullPath, err := s.validatePath(path)
	if err != nil {
		return "", err
	}

	if !upsert {
		if _, err := os.Stat(fullPath); err == nil {
			return "", ErrObjectExists
		}
	}

	if _, err := s.write(path, content); err != nil {
		return "", err
	}
	_ = contentType // recorded by object stores; the filesystem backend relies on the extension

	return path, nil
}

// write creates the file at the relative path, creating parent directories
func (s *localStorage) write(filePath string, content io.Reader) (string, error) {
	fullPath := filepath.Join(s.basePath, filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		// Clean up on error
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// Get retrieves a file by its path
func (s *localStorage) Get(filePath string) (io.ReadCloser, error) {
	// Validate path to prevent traversal
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a file by its path
func (s *localStorage) Delete(filePath string) error {
	// Validate path to prevent traversal
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			// File already doesn't exist, not an error
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// PublicURL returns the externally reachable URL for a stored path
func (s *localStorage) PublicURL(filePath string) string {
	return s.publicBaseURL + "/files/" + filepath.ToSlash(filePath)
}
