// Package storage holds the persistence configuration shared by the SQL,
// redis and object storage backends in storage/sqlstore.
//
// Two SQL drivers are supported. Production runs on PostgreSQL through
// lib/pq; local development and behavioral tests run on SQLite through
// mattn/go-sqlite3. Queries in sqlstore and catalog are written in the
// subset both dialects accept: positional $n placeholders in ascending
// order, RETURNING, CURRENT_TIMESTAMP. DDL differs per driver and lives in
// sqlstore.Migrations.
//
// Redis and S3 are optional. Without redis the OAuth state store and rate
// limiter run in-process; without S3 citizen-id document upload answers 503.
package storage
