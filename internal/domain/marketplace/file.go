package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// ReadFromFile читает документ с диска
func ReadFromFile(path string) (*SerializedMarketplace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// WriteToFile записывает документ на диск в YAML
func (m *SerializedMarketplace) WriteToFile(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("marshal marketplace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFromURL загружает документ по HTTP
func ReadFromURL(ctx context.Context, client *http.Client, url string) (*SerializedMarketplace, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFileNotFound, url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return Parse(data)
}

// IsURL true, если источник задан http(s)-адресом
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load читает документ из файла или по URL
func Load(ctx context.Context, client *http.Client, source string) (*SerializedMarketplace, error) {
	if IsURL(source) {
		return ReadFromURL(ctx, client, source)
	}
	return ReadFromFile(source)
}
