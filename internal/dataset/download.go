package dataset

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// cacheRoot is the directory under the user's home that holds downloads.
const cacheRoot = ".minikeras"

// ErrDownload is returned when a remote file cannot be fetched.
var ErrDownload = errors.New("download failed")

// httpClient is swapped in tests.
var httpClient = http.DefaultClient

// homeDir is swapped in tests.
var homeDir = os.UserHomeDir

// GetFile downloads url into ~/.minikeras/<cacheDir>/<filename> and returns
// the local path. A file that is already cached is returned without any
// network access. The download is written under a temporary name and
// renamed into place once complete, so an interrupted download is never
// mistaken for a cached file.
func GetFile(ctx context.Context, url, filename, cacheDir string) (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", errors.Wrap(err, "locate home directory")
	}
	dir := filepath.Join(home, cacheRoot, cacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create cache directory %s", dir)
	}

	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp := path + ".part"
	if err := fetch(ctx, url, tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.Wrapf(err, "move %s into place", path)
	}
	return path, nil
}

func fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(ErrDownload, "%s: %v", url, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrDownload, "%s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrDownload, "%s: %s", url, resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return errors.Wrapf(ErrDownload, "%s: %v", url, err)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
