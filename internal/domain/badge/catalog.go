package badge

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const catalogKey = "badges"

// LoadCatalogFile reads definitions from the "badges" list of a YAML file.
func LoadCatalogFile(path string) ([]Definition, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !k.Exists(catalogKey) {
		return nil, fmt.Errorf("%w: %s has no %q list", ErrEmptyCatalog, path, catalogKey)
	}
	var defs []Definition
	if err := k.UnmarshalWithConf(catalogKey, &defs, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return defs, nil
}

// FileSource loads the catalog from a YAML file on every reload.
func FileSource(path string) Source {
	return SourceFunc(func(ctx context.Context) ([]Definition, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return LoadCatalogFile(path)
	})
}

// DefaultSource serves the built-in catalog.
func DefaultSource() Source {
	return SourceFunc(func(context.Context) ([]Definition, error) {
		return DefaultCatalog(), nil
	})
}
