// Package models contains data structures used across handlers
package models

// FileRecord is one listed object, as returned by the listing API
type FileRecord struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	Size       string `json:"size"`
	UploadedAt string `json:"uploadedAt,omitempty"`
	Key        string `json:"key"`
	Bucket     string `json:"bucket"`
}

// ListResult is the aggregated listing across every visible bucket.
// Ordering of both slices is not part of the contract.
type ListResult struct {
	Files   []FileRecord `json:"files"`
	Buckets []string     `json:"buckets"`
}

// BucketGroup is a bucket with its files, for the dashboard tree
type BucketGroup struct {
	Name  string
	Files []FileRecord
}

