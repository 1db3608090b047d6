package dictionary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	repoOwner = "scriptin"
	repoName  = "jmdict-simplified"
)

// Asset name prefixes of the jmdict-simplified releases.
const (
	AssetJMdict   = "jmdict-eng-common"
	AssetKanjidic = "kanjidic2-en"
	AssetKradfile = "kradfile"
)

// LatestReleaseURL is the GitHub API URL of the newest jmdict-simplified release.
var LatestReleaseURL = fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", repoOwner, repoName)

// ErrNoAsset is returned when a release has no file for the wanted asset.
var ErrNoAsset = errors.New("no suitable dictionary asset found in release")

// Downloader fetches dictionary files from a jmdict-simplified release.
type Downloader struct {
	Client *http.Client
	// ReleaseURL is the GitHub API URL of the release; empty means latest.
	ReleaseURL string
	// Logger is used for progress messages. nil means no logging.
	Logger *slog.Logger
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (d *Downloader) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EnsureDictionary makes sure the common English JMdict exists at path,
// downloading the latest release if it does not.
func EnsureDictionary(ctx context.Context, path string) error {
	return (&Downloader{}).Ensure(ctx, path, AssetJMdict)
}

// Ensure checks if the file for asset exists at path. If not, it
// discovers the release asset, downloads it and decompresses it.
func (d *Downloader) Ensure(ctx context.Context, path, asset string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	d.log().Info("dictionary file missing, downloading", "path", path, "asset", asset)

	name, downloadURL, err := d.assetURL(ctx, asset)
	if err != nil {
		return fmt.Errorf("failed to find %s release: %w", asset, err)
	}

	d.log().Info("downloading", "url", downloadURL)
	return d.downloadAndExtract(ctx, name, downloadURL, path)
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// GitHub requires a User-Agent.
	req.Header.Set("User-Agent", "jiten-cli")
	resp, err := d.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp, nil
}

func (d *Downloader) assetURL(ctx context.Context, asset string) (string, string, error) {
	apiURL := d.ReleaseURL
	if apiURL == "" {
		apiURL = LatestReleaseURL
	}
	resp, err := d.get(ctx, apiURL)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var release struct {
		Assets []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", "", err
	}

	// Pattern: <asset>-<version>.json.tgz, or .json.gz when offered.
	for _, a := range release.Assets {
		if strings.HasPrefix(a.Name, asset+"-") && (strings.HasSuffix(a.Name, ".json.tgz") || strings.HasSuffix(a.Name, ".json.gz")) {
			return a.Name, a.BrowserDownloadURL, nil
		}
	}
	return "", "", ErrNoAsset
}

func (d *Downloader) downloadAndExtract(ctx context.Context, name, url, destPath string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	var src io.Reader = gzReader
	if strings.HasSuffix(name, ".tgz") {
		if src, err = jsonMember(tar.NewReader(gzReader)); err != nil {
			return err
		}
	}
	return writeFile(destPath, src)
}

// jsonMember advances tr to its first regular .json file.
func jsonMember(tr *tar.Reader) (io.Reader, error) {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no json file found in downloaded archive")
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, ".json") {
			return tr, nil
		}
	}
}

// writeFile copies r to path through a temporary file.
func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
