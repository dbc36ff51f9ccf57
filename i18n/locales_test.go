// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const primaryLocale = "en.yaml"

var tCallRe = regexp.MustCompile(`i18n\.T\("([^"]+)"`)

func loadLocaleKeys(t *testing.T, name string) map[string]struct{} {
	t.Helper()
	data, err := localeFS.ReadFile("locales/" + name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	keys := map[string]struct{}{}
	flattenYAML("", raw, keys)
	return keys
}

func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	m, ok := node.(map[string]any)
	if !ok {
		keys[prefix] = struct{}{}
		return
	}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flattenYAML(key, v, keys)
	}
}

// findUsedKeys returns every key passed literally to i18n.T in the
// non-test sources below root, with the first place it was seen.
func findUsedKeys(t *testing.T, root string) map[string]string {
	t.Helper()
	used := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range tCallRe.FindAllStringSubmatch(string(data), -1) {
			if _, seen := used[m[1]]; !seen {
				used[m[1]] = path
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk sources: %v", err)
	}
	return used
}

func TestLocales_UsedKeysExist(t *testing.T) {
	primary := loadLocaleKeys(t, primaryLocale)
	used := findUsedKeys(t, "..")
	if len(used) == 0 {
		t.Fatal("expected i18n.T calls in the sources")
	}

	var missing []string
	for key, where := range used {
		if _, ok := primary[key]; !ok {
			missing = append(missing, key+" ("+where+")")
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		t.Fatalf("keys used in code but missing from %s:\n  %s", primaryLocale, strings.Join(missing, "\n  "))
	}

	var orphaned []string
	for key := range primary {
		if _, ok := used[key]; !ok {
			orphaned = append(orphaned, key)
		}
	}
	sort.Strings(orphaned)
	for _, key := range orphaned {
		t.Logf("orphaned key: %s", key)
	}
}

func TestLocales_SecondaryLocalesComplete(t *testing.T) {
	primary := loadLocaleKeys(t, primaryLocale)
	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if f.Name() == primaryLocale {
			continue
		}
		secondary := loadLocaleKeys(t, f.Name())
		var missing []string
		for key := range primary {
			if _, ok := secondary[key]; !ok {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		if len(missing) > 0 {
			t.Errorf("%s is missing keys: %s", f.Name(), strings.Join(missing, ", "))
		}
	}
}
