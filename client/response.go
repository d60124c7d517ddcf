package client

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Response is a decoded JSON object returned by the API.
// A nil Response means the service returned no body.
type Response map[string]any

// Decode maps the response onto out, a pointer to a struct whose fields
// carry json tags. Unknown keys are ignored. Decoding a nil Response leaves
// out untouched.
func (r Response) Decode(out any) error {
	if r == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05-0700"),
	})
	if err != nil {
		return fmt.Errorf("response decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
