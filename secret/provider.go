package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves a ref as an environment variable name.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider reads the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

func (p *EnvProvider) Name() string { return "env" }
func (p *EnvProvider) Close() error { return nil }

// Resolve returns the value of the variable ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves a ref as a file path and returns the file content
// without its trailing newline.
type FileProvider struct {
	// Root, when set, confines refs to that directory. Relative refs are
	// resolved against it.
	Root string
}

// NewFileProvider creates a file provider confined to root, or
// unconfined when root is empty.
func NewFileProvider(root string) *FileProvider {
	return &FileProvider{Root: root}
}

func (p *FileProvider) Name() string { return "file" }
func (p *FileProvider) Close() error { return nil }

// Resolve reads the file named by ref.
func (p *FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Clean(ref)
	if p.Root != "" {
		root := filepath.Clean(p.Root)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("secret: file %s is outside %s", ref, root)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
