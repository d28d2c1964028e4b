// Package utils provides utility functions for the backup service.
package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ArtifactFilename returns the final path segment of a dump URL, which is the
// name the dump is stored under locally.
// e.g. https://host/path/backup-42.sql.gz -> backup-42.sql.gz
func ArtifactFilename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL: %w", err)
	}

	// Query and fragment never contribute to the name. The segment is kept
	// percent-encoded as it appears in the URL.
	escaped := u.EscapedPath()
	name := escaped[strings.LastIndex(escaped, "/")+1:]
	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("artifact URL has no file name: %s", rawURL)
	}

	return name, nil
}

// MirrorKey builds the object key a dump is mirrored under:
// service/database/filename. The storage prefix is added by the storage layer.
func MirrorKey(serviceName, databaseName, filename string) string {
	return path.Join(sanitizeSegment(serviceName), sanitizeSegment(databaseName), filename)
}

// sanitizeSegment keeps a name from introducing extra key levels.
func sanitizeSegment(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}
