// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, retry budgets, and cross-cutting keys that are
shared between the catalog, ingest, publish, and chat layers.

Categories:

  - Catalog Client: pagination, backoff, and HTTP timeouts for the upstream API.
  - Ingest: batch sizing and savepoint naming.
  - Publish: queue depth and upload polling.
  - Database Schemas: the Postgres schema names used across the store layer.

Using this package ensures magic strings and magic numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "ingestd"
	AppVersion = "0.1.0-dev"
)

// # Catalog Client

const (
	// DefaultCatalogTimeout bounds a single upstream HTTP request.
	DefaultCatalogTimeout = 15 * time.Second

	// CatalogRetryAttempts is the number of attempts (including the first)
	// made against the upstream catalog before a page fetch is abandoned.
	CatalogRetryAttempts = 3

	// CatalogRetryBaseDelay is the base used in the exponential backoff
	// formula base*2^(attempt-1) between catalog retry attempts.
	CatalogRetryBaseDelay = 1 * time.Second

	// DefaultCatalogPageSize is the page size requested when the caller does
	// not override it.
	DefaultCatalogPageSize = 100
)

// # Ingest

const (
	// DefaultIngestBatchSize is the number of bundles normalized and written
	// together inside one transaction when the caller does not override it.
	DefaultIngestBatchSize = 50

	// SavepointPrefix names the per-bundle savepoint created inside an
	// ingest batch transaction, suffixed with the bundle's ordinal index.
	SavepointPrefix = "bundle_sp_"

	// DefaultDeltaLookback is how far behind "now" the delta sync scans for
	// updated_at changes when the caller does not override it.
	DefaultDeltaLookback = 24 * time.Hour
)

// # Publish

const (
	// DefaultWorkerConcurrency is the number of bounded-concurrency ingest
	// workers started per run when the caller does not override it.
	DefaultWorkerConcurrency = 4

	// PublishRetryAttempts is the number of attempts (including the first)
	// the publish worker makes to download a single episode's media; the
	// publish queue itself never retries an upload.
	PublishRetryAttempts = 3

	// PublishRetryBaseDelay is the base used in the exponential backoff
	// formula base*2^(attempt-1) between the publish worker's download
	// retry attempts.
	PublishRetryBaseDelay = 2 * time.Second

	// DefaultUploadPollInterval is how often the publish worker polls the
	// store for episodes without published media when the caller does not
	// override it.
	DefaultUploadPollInterval = 3 * time.Second

	// DefaultPublishQueueDepth bounds the number of pending publish jobs
	// buffered per worker key; Enqueue returns ErrQueueFull once it is reached.
	DefaultPublishQueueDepth = 256
)

// # Database Schemas

const (
	SchemaCatalog = "catalog"
)

// # Process Lifecycle

const (
	// StartupTimeout bounds the whole connect-migrate-wire sequence before a
	// process gives up and exits non-zero.
	StartupTimeout = 30 * time.Second

	// ShutdownTimeout bounds how long a process waits for in-flight work
	// (delta-sync ticks, publish-queue uploads) to drain after a SIGINT/
	// SIGTERM before it exits anyway.
	ShutdownTimeout = 30 * time.Second
)
