// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package downloader_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinomir/ingestd/internal/catalog"
	"github.com/kinomir/ingestd/internal/downloader"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCatalog(t *testing.T, baseURL string) *catalog.Client {
	t.Helper()
	return catalog.New(catalog.Config{BaseURL: baseURL, Token: "tok", RPSLimit: 1000}, noopLogger())
}

// writeFakeMuxer writes an executable shell script standing in for the real
// muxer binary. script receives $OUTPUT as its last argument (per the real
// invocation's `-y OUTPUT` trailing arg).
func writeFakeMuxer(t *testing.T, dir, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake muxer script assumes a POSIX shell")
	}
	path := filepath.Join(dir, "fake-muxer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestDownload_RejectsEmptyExternalIDs(t *testing.T) {
	c := newTestCatalog(t, "http://unused")
	d := downloader.New(c, downloader.Config{MuxerPath: "/bin/true", TempDir: t.TempDir()})

	_, err := d.Download(t.Context(), downloader.Input{ExternalIDs: map[string]string{}, TranslationID: 1, EpisodeNum: 1})

	var invalid *downloader.InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestDownload_RejectsNonPositiveEpisodeNumber(t *testing.T) {
	c := newTestCatalog(t, "http://unused")
	d := downloader.New(c, downloader.Config{MuxerPath: "/bin/true", TempDir: t.TempDir()})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    0,
	})

	var invalid *downloader.InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestDownload_MapsCatalogNotFoundToInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: "/bin/true", TempDir: t.TempDir()})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    1,
	})

	var invalid *downloader.InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestDownload_MuxerNotFoundSurfacesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: filepath.Join(t.TempDir(), "does-not-exist"), TempDir: t.TempDir()})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    1,
	})

	var notFound *downloader.FFmpegNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestDownload_MuxerNonZeroExitSurfacesFailedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	muxer := writeFakeMuxer(t, tmp, `echo "boom" 1>&2; exit 3`)

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: muxer, TempDir: tmp})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    1,
	})

	var failed *downloader.FFmpegFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.ReturnCode)
	assert.Contains(t, failed.Stderr, "boom")
}

func TestDownload_OutputNotCreatedSurfacesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	muxer := writeFakeMuxer(t, tmp, `exit 0`) // exits clean without writing the output file

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: muxer, TempDir: tmp})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    1,
	})

	var notCreated *downloader.FileNotCreatedError
	assert.True(t, errors.As(err, &notCreated))
}

func TestDownload_OutputTooSmallSurfacesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	// The real muxer's last arg is the output path; write a few bytes to it.
	muxer := writeFakeMuxer(t, tmp, `for out do :; done; printf 'x' > "$out"; exit 0`)

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: muxer, TempDir: tmp, MinSize: 16})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "1"},
		TranslationID: 1,
		EpisodeNum:    1,
	})

	var tooSmall *downloader.FileTooSmallError
	require.True(t, errors.As(err, &tooSmall))
	assert.Equal(t, int64(16), tooSmall.Min)
}

func TestDownload_SucceedsAndComputesChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	muxer := writeFakeMuxer(t, tmp, `for out do :; done; head -c 4096 /dev/zero > "$out"; exit 0`)

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: muxer, TempDir: tmp, MinSize: 10, Timeout: 5 * time.Second})

	result, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "777"},
		TranslationID: 2,
		EpisodeNum:    5,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(4096), result.SizeBytes)
	assert.NotEmpty(t, result.Checksum)
	assert.Contains(t, result.Path, "777-2-5.mp4")

	info, statErr := os.Stat(result.Path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(4096), info.Size())
}

func TestDownload_CleansUpPartialFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "https://cdn.example/playlist.m3u8")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	muxer := writeFakeMuxer(t, tmp, `for out do :; done; printf 'x' > "$out"; exit 0`)

	c := newTestCatalog(t, srv.URL)
	d := downloader.New(c, downloader.Config{MuxerPath: muxer, TempDir: tmp, MinSize: 4096})

	_, err := d.Download(t.Context(), downloader.Input{
		ExternalIDs:   map[string]string{"shikimori": "42"},
		TranslationID: 1,
		EpisodeNum:    1,
	})
	require.Error(t, err)

	entries, readErr := os.ReadDir(tmp)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.NotEqual(t, "42-1-1.mp4", e.Name())
	}
}

func TestChecksumSHA256_IsDeterministic(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	a, err := downloader.ChecksumSHA256(context.Background(), path)
	require.NoError(t, err)
	b, err := downloader.ChecksumSHA256(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}
