// Package db embeds the database schema.
package db

import _ "embed"

// Schema holds the DDL for the offer engine tables: products, offers,
// offer_redemptions, and orders.
//
//go:embed migrations/001_schema.sql
var Schema string
