// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package downloader resolves an episode's playlist URL via the catalog
client, remuxes it to a single-file container with an external muxer
subprocess, and validates and checksums the result.

# Checksum algorithm

SHA-256 is used (not MD5): it costs one more pass over memory than MD5 for
negligible wall-clock difference on modern hardware, and avoids shipping a
collision-broken hash as this service's sole integrity check. [ChecksumMD5]
is kept alongside [ChecksumSHA256] for callers that need to cross-check
against an MD5-only caller.
*/
package downloader

import (
	stdctx "context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kinomir/ingestd/internal/catalog"
)

// MinFileSize is the minimum acceptable output file size; anything smaller
// is treated as a failed remux.
const MinFileSize = 100 * 1024 // 100 KiB

// OutputExt is the container extension the muxer is configured to produce.
const OutputExt = "mp4"

// Input is one download request.
type Input struct {
	ExternalIDs   map[string]string
	TranslationID int
	EpisodeNum    int
	Quality       int
}

// Result is the successful outcome of a download.
type Result struct {
	Path      string
	SizeBytes int64
	Checksum  string
}

// Downloader remuxes HLS playlists resolved via the catalog client into a
// single-file container using an external muxer binary.
type Downloader struct {
	catalog   *catalog.Client
	muxerPath string
	tempDir   string
	timeout   time.Duration
	minSize   int64
}

// Config configures a Downloader.
type Config struct {
	MuxerPath string
	TempDir   string
	Timeout   time.Duration
	MinSize   int64 // 0 defaults to MinFileSize
}

// New constructs a Downloader.
func New(catalogClient *catalog.Client, cfg Config) *Downloader {
	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = MinFileSize
	}
	return &Downloader{
		catalog:   catalogClient,
		muxerPath: cfg.MuxerPath,
		tempDir:   cfg.TempDir,
		timeout:   cfg.Timeout,
		minSize:   minSize,
	}
}

// Download validates in, resolves its playlist URL, remuxes it, and
// returns the validated, checksummed result. Every failure path deletes
// any partial output file before returning.
func (d *Downloader) Download(ctx stdctx.Context, in Input) (Result, error) {
	if err := validateInput(in); err != nil {
		return Result{}, err
	}

	playlistURL, err := d.catalog.GetEpisodePlaylist(ctx, in.ExternalIDs, in.TranslationID, in.EpisodeNum, in.Quality)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			return Result{}, &InvalidInputError{Reason: "no external id resolves to a playlist"}
		}
		return Result{}, &CatalogError{Cause: err}
	}

	outputPath := d.outputPath(in)

	if err := d.runMuxer(ctx, playlistURL, outputPath); err != nil {
		d.cleanup(outputPath)
		return Result{}, err
	}

	size, err := validateOutput(outputPath, d.minSize)
	if err != nil {
		d.cleanup(outputPath)
		return Result{}, err
	}

	checksum, err := ChecksumSHA256(ctx, outputPath)
	if err != nil {
		d.cleanup(outputPath)
		return Result{}, fmt.Errorf("downloader: checksum: %w", err)
	}

	return Result{Path: outputPath, SizeBytes: size, Checksum: checksum}, nil
}

// outputPath is deterministic: {temp_dir}/{source_id}-{translation_id}-{episode_num}.{ext}.
func (d *Downloader) outputPath(in Input) string {
	sourceID := "unknown"
	for _, k := range []string{"shikimori", "kinopoisk", "imdb"} {
		if v, ok := in.ExternalIDs[k]; ok && v != "" {
			sourceID = v
			break
		}
	}
	name := fmt.Sprintf("%s-%d-%d.%s", sourceID, in.TranslationID, in.EpisodeNum, OutputExt)
	return filepath.Join(d.tempDir, name)
}

// runMuxer invokes the external muxer as a stream-copy remux, enforcing a
// hard wall-clock timeout. On timeout, the subprocess is killed before the
// caller touches the (now partial) output path.
func (d *Downloader) runMuxer(ctx stdctx.Context, inputURL, outputPath string) error {
	if _, err := os.Stat(d.muxerPath); err != nil {
		return &FFmpegNotFoundError{Path: d.muxerPath}
	}

	timeout := d.timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	runCtx, cancel := stdctx.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.muxerPath,
		"-i", inputURL,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-movflags", "+faststart",
		"-y", outputPath,
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("downloader: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("downloader: start muxer: %w", err)
	}

	stderrBytes, _ := io.ReadAll(io.LimitReader(stderr, 1000))
	waitErr := cmd.Wait()

	if runCtx.Err() == stdctx.DeadlineExceeded {
		return &FFmpegTimeoutError{Seconds: int(timeout.Seconds())}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		code := -1
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &FFmpegFailedError{ReturnCode: code, Stderr: string(stderrBytes)}
	}

	return nil
}

// validateOutput checks existence, non-zero size, and the configured
// minimum size floor.
func validateOutput(path string, minSize int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &FileNotCreatedError{Path: path}
	}
	if info.Size() == 0 {
		return 0, &FileEmptyError{Path: path}
	}
	if info.Size() < minSize {
		return 0, &FileTooSmallError{Size: info.Size(), Min: minSize}
	}
	return info.Size(), nil
}

// cleanup best-effort deletes a partial/failed output file.
func (d *Downloader) cleanup(path string) {
	_ = os.Remove(path)
}

// validateInput rejects malformed requests before any network call.
func validateInput(in Input) error {
	hasExternalID := false
	for _, v := range in.ExternalIDs {
		if v != "" {
			hasExternalID = true
			break
		}
	}
	if !hasExternalID {
		return &InvalidInputError{Reason: "no external ids provided"}
	}
	if in.TranslationID < 0 {
		return &InvalidInputError{Reason: "translation id must be non-negative"}
	}
	if in.EpisodeNum < 1 {
		return &InvalidInputError{Reason: "episode number must be positive"}
	}
	return nil
}

// ChecksumSHA256 streams path through a SHA-256 hash, the checksum
// algorithm this service standardizes on. The hash itself runs on
// [defaultHashPool], the one CPU-bound step this package permits off the
// cooperative suspension path described by the concurrency model.
func ChecksumSHA256(ctx stdctx.Context, path string) (string, error) {
	return defaultHashPool.submit(ctx, func() (string, error) {
		return streamHash(path, sha256.New())
	})
}

// ChecksumMD5 streams path through an MD5 hash, kept only for
// cross-checking against callers that still assume MD5 test vectors. It
// shares [defaultHashPool] with ChecksumSHA256.
func ChecksumMD5(ctx stdctx.Context, path string) (string, error) {
	return defaultHashPool.submit(ctx, func() (string, error) {
		return streamHash(path, md5.New())
	})
}

func streamHash(path string, h hashWriter) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashWriter is the subset of hash.Hash streamHash needs.
type hashWriter interface {
	io.Writer
	Sum(b []byte) []byte
}
