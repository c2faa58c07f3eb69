// Package store persists refinement runs in a relational database and
// serves aggregate statistics over them. SQLite backs development and
// tests; Postgres is selected by configuration in production.
// This package is internal and should not be imported by external projects.
package store
