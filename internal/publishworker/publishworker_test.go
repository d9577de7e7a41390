// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package publishworker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kinomir/ingestd/internal/downloader"
)

func TestHasExternalID_TrueWhenAnyValuePresent(t *testing.T) {
	assert.True(t, hasExternalID(map[string]string{"shikimori": "", "kinopoisk": "42"}))
}

func TestHasExternalID_FalseWhenAllEmpty(t *testing.T) {
	assert.False(t, hasExternalID(map[string]string{"shikimori": "", "kinopoisk": ""}))
	assert.False(t, hasExternalID(map[string]string{}))
	assert.False(t, hasExternalID(nil))
}

func TestIsTransientDownloadError_ClassifiesKnownSubtypes(t *testing.T) {
	assert.True(t, isTransientDownloadError(&downloader.FFmpegTimeoutError{Seconds: 30}))
	assert.True(t, isTransientDownloadError(&downloader.FFmpegFailedError{ReturnCode: 1}))
	assert.True(t, isTransientDownloadError(&downloader.CatalogError{Cause: errors.New("x")}))
}

func TestIsTransientDownloadError_RejectsPermanentSubtypes(t *testing.T) {
	assert.False(t, isTransientDownloadError(&downloader.InvalidInputError{Reason: "bad input"}))
	assert.False(t, isTransientDownloadError(&downloader.FileTooSmallError{Size: 1, Min: 100}))
	assert.False(t, isTransientDownloadError(errors.New("unrelated")))
}
