package utils

import (
	"strings"
	"time"
	"unicode/utf8"
)

// UnixMillis is the storage form of every timestamp column.
func UnixMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func TimeFromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func TimePtrFromUnixMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := TimeFromUnixMillis(*ms)
	return &t
}

// NilIfBlank trims s and returns nil when nothing is left.
func NilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// PositiveOrNil treats zero and negative numbers as absent.
func PositiveOrNil(p *float64) *float64 {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}

// Truncate cuts s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// Prefix returns the first n runes of s without a marker.
func Prefix(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
