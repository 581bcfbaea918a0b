package helpers

import (
	"net/url"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeQuery decodes URL query values into T using its mapstructure tags.
// Repeated keys keep their first value.
func DecodeQuery[T any](values url.Values) (T, error) {
	var target T

	flat := make(map[string]any, len(values))
	for key, value := range values {
		if len(value) > 0 {
			flat[key] = value[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return target, err
	}
	if err = decoder.Decode(flat); err != nil {
		return target, err
	}
	return target, nil
}
