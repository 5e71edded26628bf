// Package i18n resolves localized user-facing strings.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goLocale "github.com/jeandeaual/go-locale"
	i18nLib "github.com/kaptinlin/go-i18n"
	"golang.org/x/text/language"
)

// LocaleProvider reports the locales preferred by the current user.
type LocaleProvider interface {
	GetLocales() ([]string, error)
}

type systemLocaleProvider struct{}

func (provider systemLocaleProvider) GetLocales() ([]string, error) {
	return goLocale.GetLocales()
}

//go:embed lang/*.json
var catalogFS embed.FS

const defaultLocale = "en-GB"

// testModeEnvVar short-circuits translation so test output stays stable
// regardless of the machine locale.
const testModeEnvVar = "NYXPATCHER_TEST"

var (
	localizer      *i18nLib.Localizer
	bundle         *i18nLib.I18n
	langDir        = "lang"
	localeProvider LocaleProvider
	setupOnce      sync.Once

	// translationMutex guards localizer.Get(), whose internal cache is not
	// safe for concurrent use.
	translationMutex sync.Mutex
)

func ResetForTesting() {
	translationMutex.Lock()
	localizer = nil
	bundle = nil
	translationMutex.Unlock()
	setupOnce = sync.Once{}
}

type TData map[string]interface{}

type Tvars struct {
	Count int
	Data  *TData
}

func ensureInitialized() {
	setupOnce.Do(setup)
}

func setup() {
	if localeProvider == nil {
		localeProvider = systemLocaleProvider{}
	}

	files, err := catalogFS.ReadDir(langDir)
	if err != nil {
		panic(err)
	}

	availableLocales := []string{defaultLocale}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		locale := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.EqualFold(locale, defaultLocale) {
			continue
		}
		availableLocales = append(availableLocales, locale)
	}

	newBundle := i18nLib.NewBundle(
		i18nLib.WithDefaultLocale(defaultLocale),
		i18nLib.WithLocales(availableLocales...),
	)

	if err := newBundle.LoadFS(catalogFS, fmt.Sprintf("%s/*.json", langDir)); err != nil {
		panic(err)
	}

	userLocales := normalizeLocales(userLocales())
	newLocalizer := newBundle.NewLocalizer(userLocales...)

	translationMutex.Lock()
	bundle = newBundle
	localizer = newLocalizer
	translationMutex.Unlock()
}

// T translates a message key. At most one Tvars argument is accepted.
func T(key string, args ...Tvars) string {
	if _, present := os.LookupEnv(testModeEnvVar); present {
		return formatKeyAndArgs(key, args...)
	}

	ensureInitialized()

	if len(args) > 1 {
		panic("too many arguments")
	}

	var vars map[string]interface{}
	if len(args) > 0 {
		vars = make(map[string]interface{})
		if args[0].Data != nil {
			for varKey, value := range *args[0].Data {
				vars[varKey] = value
			}
		}
		vars["count"] = args[0].Count
	}

	translationMutex.Lock()
	defer translationMutex.Unlock()

	if len(args) == 0 {
		return localizer.Get(key)
	}

	return localizer.Get(key, i18nLib.Vars(vars))
}

func userLocales() []string {
	if envLocale, present := os.LookupEnv("LANG"); present {
		return []string{envLocale}
	}

	detected, err := localeProvider.GetLocales()
	if err != nil {
		return []string{language.English.String()}
	}

	locales := make([]string, 0, len(detected))
	for _, localeName := range detected {
		if localeName == "" {
			continue
		}
		locales = append(locales, localeName)
	}
	return locales
}

func formatKeyAndArgs(key string, args ...Tvars) string {
	var sb strings.Builder
	sb.WriteString(key)

	for i, arg := range args {
		sb.WriteString(fmt.Sprintf(", Arg %d: {Count: %d, Data: %v}", i+1, arg.Count, arg.Data))
	}

	return sb.String()
}

// normalizeLocales canonicalizes raw locale names and appends the bare
// language for each so "fr_FR" also matches an "fr" catalog.
func normalizeLocales(rawLocales []string) []string {
	locales := make([]string, 0, len(rawLocales)*2)
	seen := make(map[string]struct{}, len(rawLocales)*2)

	for _, localeName := range rawLocales {
		if localeName == "" {
			continue
		}

		tag, err := language.Parse(localeName)
		if err != nil {
			continue
		}

		canonical := tag.String()
		if _, ok := seen[canonical]; !ok {
			locales = append(locales, canonical)
			seen[canonical] = struct{}{}
		}

		if base, _ := tag.Base(); base.String() != "" {
			baseName := base.String()
			if _, ok := seen[baseName]; !ok {
				locales = append(locales, baseName)
				seen[baseName] = struct{}{}
			}
		}
	}

	return locales
}
