package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLocale = "en"
	reasonsFile   = "reasons.yaml"
)

type Translations map[string]string

var (
	locales = make(map[string]Translations)
	mu      sync.RWMutex
)

// LoadTranslations reads <localePath>/<locale>/reasons.yaml for every locale
// directory. Directories without the file are skipped.
func LoadTranslations(localePath string) error {
	mu.Lock()
	defer mu.Unlock()

	entries, err := os.ReadDir(localePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		filePath := filepath.Join(localePath, locale, reasonsFile)

		data, err := os.ReadFile(filePath)
		if err != nil {
			continue
		}

		var catalog struct {
			Reasons Translations `yaml:"REASONS"`
		}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		locales[locale] = catalog.Reasons
	}

	return nil
}

// Translate looks key up in locale, then in English, and finally returns the
// key itself.
func Translate(locale, key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if trans, ok := locales[locale]; ok {
		if val, ok := trans[key]; ok {
			return val
		}
	}

	if locale != DefaultLocale {
		if trans, ok := locales[DefaultLocale]; ok {
			if val, ok := trans[key]; ok {
				return val
			}
		}
	}

	return key
}

// Has reports whether any loaded locale defines key.
func Has(locale, key string) bool {
	mu.RLock()
	defer mu.RUnlock()
	if trans, ok := locales[locale]; ok {
		if _, ok := trans[key]; ok {
			return true
		}
	}
	_, ok := locales[DefaultLocale][key]
	return ok
}

// FromAcceptLanguage picks the first loaded locale named in an Accept-Language
// header value, ignoring region and quality suffixes.
func FromAcceptLanguage(header string) string {
	mu.RLock()
	defer mu.RUnlock()

	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := locales[tag]; ok {
			return tag
		}
	}
	return DefaultLocale
}
