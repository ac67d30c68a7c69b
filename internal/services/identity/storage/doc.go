// Package storage defines persistence contracts for identity records.
package storage
