// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	structureIgnoreDirs  = map[string]bool{".git": true, ".svn": true, "__pycache__": true}
	structureIgnoreFiles = map[string]bool{".DS_Store": true, ".gitignore": true, ".gitattributes": true}
)

// Structure renders the directory tree as indented text, directories
// first, names sorted case-insensitively. maxDepth of -1 means unlimited.
// The rendering is what the model sees as "Project Structure".
func Structure(dir string, maxDepth int) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s is not a valid directory", dir)
	}

	var sb strings.Builder
	sb.WriteString(filepath.Base(dir) + "/\n")
	if err := walkStructure(&sb, dir, 1, maxDepth); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func walkStructure(sb *strings.Builder, dir string, depth, maxDepth int) error {
	if maxDepth != -1 && depth > maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if e.IsDir() {
			if structureIgnoreDirs[e.Name()] {
				continue
			}
			sb.WriteString(indent + e.Name() + "/\n")
			if err := walkStructure(sb, filepath.Join(dir, e.Name()), depth+1, maxDepth); err != nil {
				return err
			}
			continue
		}
		if structureIgnoreFiles[e.Name()] {
			continue
		}
		sb.WriteString(indent + e.Name() + "\n")
	}
	return nil
}
