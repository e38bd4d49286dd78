// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	if err := AtomicWriteFile(path, data, 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("test data"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0644); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0644); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "updated" {
		t.Errorf("Content = %q, want %q", content, "updated")
	}

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestAtomicWriteFileWithDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private", "cfg.toml")

	if err := AtomicWriteFileWithDir(path, []byte("x"), 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFileWithDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("parent is not a directory")
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("dir perm = %o, want 700", perm)
		}
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat file: %v", err)
		}
		if perm := fi.Mode().Perm(); perm != 0600 {
			t.Errorf("file perm = %o, want 600", perm)
		}
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestExcerpt(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short", "hello", 50, "hello..."},
		{"exact", "abcde", 5, "abcde..."},
		{"long", strings.Repeat("a", 60), 50, strings.Repeat("a", 50) + "..."},
		{"utf8", "日本語のテキスト", 3, "日本語..."},
		{"empty", "", 50, "..."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Excerpt(tc.input, tc.max); got != tc.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		input string
		max   int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 0, ""},
		{"hello", 2, "he"},
		{"こんにちは世界", 5, "こん..."},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s/%d", tc.input, tc.max), func(t *testing.T) {
			if got := TruncateRunes(tc.input, tc.max); got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"ascii short", "hello", 10, "hello"},
		{"ascii exact", "hello", 5, "hello"},
		{"ascii truncate", "hello world", 8, "hello..."},
		{"cjk truncate", "日本語テキスト", 7, "日本..."},
		{"tiny", "hello", 2, "he"},
		{"zero width", "hello", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.input, tc.maxWidth)
			if got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.maxWidth, got, tc.want)
			}
			if StringWidth(got) > tc.maxWidth {
				t.Errorf("TruncateWidth(%q, %d) width = %d", tc.input, tc.maxWidth, StringWidth(got))
			}
		})
	}
}

func TestStringWidth(t *testing.T) {
	if got := StringWidth("abc"); got != 3 {
		t.Errorf("StringWidth(abc) = %d, want 3", got)
	}
	if got := StringWidth("日本"); got != 4 {
		t.Errorf("StringWidth(日本) = %d, want 4", got)
	}
	if got := RuneLen("日本"); got != 2 {
		t.Errorf("RuneLen(日本) = %d, want 2", got)
	}
}

// =============================================================================
// TAIL TESTS
// =============================================================================

func writeLines(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTailLines(t *testing.T) {
	path := writeLines(t, 25)

	got, err := TailLines(path, 10)
	if err != nil {
		t.Fatalf("TailLines failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0] != "line 16" || got[9] != "line 25" {
		t.Errorf("TailLines = %v, want line 16..line 25", got)
	}
}

func TestTailLines_ShortFile(t *testing.T) {
	path := writeLines(t, 3)

	got, err := TailLines(path, 10)
	if err != nil {
		t.Fatalf("TailLines failed: %v", err)
	}
	if len(got) != 3 || got[0] != "line 1" {
		t.Errorf("TailLines = %v, want 3 lines from line 1", got)
	}
}

func TestTailLines_Missing(t *testing.T) {
	_, err := TailLines(filepath.Join(t.TempDir(), "nope.log"), 10)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestTailLines_ZeroLines(t *testing.T) {
	got, err := TailLines("ignored", 0)
	if err != nil || got != nil {
		t.Errorf("TailLines(0) = %v, %v; want nil, nil", got, err)
	}
}
