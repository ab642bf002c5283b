// Package locale holds the static message tables for the supported languages.
package locale

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/language"
)

//go:embed messages.yaml
var messagesRaw []byte

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
)

type Info struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

type table struct {
	Info     `yaml:",inline"`
	Messages map[string]string `yaml:"messages"`
}

type bundleFile struct {
	Base    string  `yaml:"base"`
	Locales []table `yaml:"locales"`
}

// Bundle is read-only after load.
type Bundle struct {
	base    string
	order   []Info
	tables  map[string]map[string]string
	matcher language.Matcher
	tags    []language.Tag
}

func Default() *Bundle {
	defaultOnce.Do(func() {
		b, err := Load(messagesRaw)
		if err != nil {
			panic(fmt.Sprintf("locale: embedded messages: %v", err))
		}
		defaultBundle = b
	})
	return defaultBundle
}

// Load parses a bundle and checks that every locale carries every key of the base locale.
func Load(raw []byte) (*Bundle, error) {
	var file bundleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	b := &Bundle{
		base:   strings.TrimSpace(file.Base),
		tables: make(map[string]map[string]string, len(file.Locales)),
	}
	for _, t := range file.Locales {
		code := strings.TrimSpace(t.Code)
		if code == "" {
			return nil, fmt.Errorf("locale without code")
		}
		if _, dup := b.tables[code]; dup {
			return nil, fmt.Errorf("locale %s: duplicate", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", code, err)
		}
		b.tables[code] = t.Messages
		b.order = append(b.order, Info{Code: code, Name: t.Name})
		b.tags = append(b.tags, tag)
	}

	baseTable, ok := b.tables[b.base]
	if !ok {
		return nil, fmt.Errorf("base locale %q is not defined", b.base)
	}
	for code, msgs := range b.tables {
		var missing []string
		for key := range baseTable {
			if strings.TrimSpace(msgs[key]) == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, fmt.Errorf("locale %s: missing keys %s", code, strings.Join(missing, ", "))
		}
	}

	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) Base() string { return b.base }

// Supported lists the locales in file order.
func (b *Bundle) Supported() []Info {
	return append([]Info(nil), b.order...)
}

func (b *Bundle) Has(code string) bool {
	_, ok := b.tables[code]
	return ok
}

// Resolve returns code when it is supported and the base locale otherwise.
func (b *Bundle) Resolve(code string) string {
	code = strings.TrimSpace(code)
	if b.Has(code) {
		return code
	}
	return b.base
}

// Match picks the best supported locale for an Accept-Language header.
func (b *Bundle) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return b.base
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return b.base
	}
	return b.order[idx].Code
}

// T looks up key in code, falling back to the base locale and then to the key.
// args are name/value pairs substituted for {name} placeholders.
func (b *Bundle) T(code, key string, args ...string) string {
	msg, ok := b.tables[code][key]
	if !ok {
		msg, ok = b.tables[b.base][key]
	}
	if !ok {
		return key
	}
	if len(args) < 2 {
		return msg
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
