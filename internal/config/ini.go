package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// iniCodec lets viper read and write the dwh.cfg layout. Sections become
// nested maps keyed by the lower-cased section name. Values keep their
// quotes and # or ; characters; Load strips the quotes.
type iniCodec struct{}

func (iniCodec) Decode(b []byte, v map[string]any) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		PreserveSurroundedQuote: true,
		AllowBooleanKeys:        true,
	}, b)
	if err != nil {
		return err
	}

	for _, section := range f.Sections() {
		values := make(map[string]any, len(section.Keys()))
		for _, key := range section.Keys() {
			values[strings.ToLower(key.Name())] = key.Value()
		}
		if section.Name() == ini.DefaultSection {
			for k, val := range values {
				v[k] = val
			}
			continue
		}
		v[strings.ToLower(section.Name())] = values
	}
	return nil
}

func (iniCodec) Encode(v map[string]any) ([]byte, error) {
	f := ini.Empty()

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values, ok := v[name].(map[string]any)
		if !ok {
			if _, err := f.Section(ini.DefaultSection).NewKey(strings.ToUpper(name), fmt.Sprint(v[name])); err != nil {
				return nil, err
			}
			continue
		}

		section, err := f.NewSection(strings.ToUpper(name))
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := section.NewKey(strings.ToUpper(k), fmt.Sprint(values[k])); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newViper returns a viper instance that understands INI alongside the
// formats viper ships with.
func newViper() *viper.Viper {
	codecs := viper.NewCodecRegistry()
	_ = codecs.RegisterCodec("ini", iniCodec{})
	return viper.NewWithOptions(viper.WithCodecRegistry(codecs))
}
