// Package locale renders player-facing text from the embedded message
// catalogs through golang.org/x/text.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for unknown locales and missing keys.
const BaseLocale = "en-US"

// Message keys used outside this package.
const (
	KeyLastStationLost    = "last-radio-station-lost-message"
	KeyCountdown          = "radio-station-countdown-announcement"
	KeyStationDescription = "radiostation-frequency-description"
	KeyNeutral            = "radiostation-neutral-frequency"
	KeySummaryCount       = "radiostation-summary-count"
	KeyCapturedCount      = "radiostation-captured-count"
	KeyLeader             = "radiostation-leader-frequency"
	KeyAlliesInfo         = "radiostation-allies-info"
	KeyAlliesInfoEntry    = "radiostation-allies-info-dop"
)

//go:embed locales/*.yaml
var embedded embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog prints messages for one locale, falling back to BaseLocale.
type Catalog struct {
	locale   string
	printer  *message.Printer
	messages map[string]string
}

// Load returns the embedded catalog for locale.
func Load(locale string) (*Catalog, error) {
	return LoadFS(embedded, locale)
}

// MustLoad is Load for package-level defaults and tests.
func MustLoad(locale string) *Catalog {
	c, err := Load(locale)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFS reads every locales/*.yaml file in fsys, registers them in a
// private x/text catalog and returns a printer for locale. An unknown
// locale falls back to BaseLocale.
func LoadFS(fsys fs.FS, locale string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	files := map[string]map[string]string{}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		want := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if f.Locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name", p, f.Locale)
		}
		files[f.Locale] = f.Messages
	}
	base, ok := files[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	locale = strings.TrimSpace(locale)
	if _, ok := files[locale]; !ok {
		locale = BaseLocale
	}

	// Missing keys in the selected locale inherit the base text.
	merged := make(map[string]string, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range files[locale] {
		merged[k] = v
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
	}
	builder := catalog.NewBuilder(catalog.Fallback(tag))
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := builder.SetString(tag, k, merged[k]); err != nil {
			return nil, fmt.Errorf("register %s/%s: %w", locale, k, err)
		}
	}

	return &Catalog{
		locale:   locale,
		printer:  message.NewPrinter(tag, message.Catalog(builder)),
		messages: merged,
	}, nil
}

// Locale returns the locale the catalog resolved to.
func (c *Catalog) Locale() string {
	return c.locale
}

// Has reports whether key has a translation.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// Text formats key with args. Unknown keys are returned verbatim so that a
// missing translation is visible rather than blank.
func (c *Catalog) Text(key string, args ...any) string {
	if !c.Has(key) {
		return key
	}
	return c.printer.Sprintf(key, args...)
}
