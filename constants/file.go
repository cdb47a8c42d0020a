package constants

import (
	"net/url"
	"path"
	"strings"
)

// AllowedImageExtensions holds the extensions accepted for item image URLs.
var AllowedImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"gif":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageURL reports whether raw is an absolute http(s) URL whose path ends in an allowed image extension.
func IsImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	_, ok := AllowedImageExtensions[NormalizeExt(path.Ext(u.Path))]
	return ok
}
