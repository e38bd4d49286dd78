// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"bufio"
	"fmt"
	"os"
)

// TailLines returns the last n lines of the file at path, oldest first.
// Lines are kept in a ring so memory stays bounded by n regardless of the
// file size. n <= 0 returns nil.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	out := make([]string, 0, n)
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, nil
}
