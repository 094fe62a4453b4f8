// skinconv converts a plain skin list (one name per line, or comma
// separated) to the skins.yaml table.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cellarena/server/internal/data"
	"gopkg.in/yaml.v3"
)

type skinEntry struct {
	Name string `yaml:"name"`
	Note string `yaml:"note,omitempty"`
}

type skinFile struct {
	Skins []skinEntry `yaml:"skins"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: skinconv <skinList.txt> <output.yaml>")
		os.Exit(1)
	}

	inFile, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer inFile.Close()

	seen := make(map[string]bool)
	var out skinFile
	scanner := bufio.NewScanner(inFile)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, name := range strings.Split(line, ",") {
			name = strings.TrimSpace(name)
			key := strings.ToLower(name)
			if name == "" || seen[key] {
				continue
			}
			seen[key] = true
			out.Skins = append(out.Skins, skinEntry{Name: name})
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sort.Slice(out.Skins, func(i, j int) bool {
		return strings.ToLower(out.Skins[i].Name) < strings.ToLower(out.Skins[j].Name)
	})

	raw, err := yaml.Marshal(&out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// The server must be able to load what we write.
	if _, err := data.ParseSkinTable(raw); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	header := fmt.Sprintf("# Skin table, generated from %s (%d entries)\n", os.Args[1], len(out.Skins))
	if err := os.WriteFile(os.Args[2], append([]byte(header), raw...), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d skins to %s\n", len(out.Skins), os.Args[2])
}
