package console

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load decodes the YAML file at path (skipped when empty) and then
// environment variables starting with envPrefix into out. out should already
// hold defaults; keys absent from both sources leave them untouched.
//
// Environment names map to keys by dropping the prefix, lower-casing and
// treating "__" as the nesting separator: RECOVERY_API__BASE_URL sets
// api.base_url.
func Load(path, envPrefix string, out any) error {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	if envPrefix != "" {
		err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
		}), nil)
		if err != nil {
			return fmt.Errorf("load environment: %w", err)
		}
	}

	if out == nil {
		return errors.New("config target is nil")
	}

	return k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	})
}
