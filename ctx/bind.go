package ctx

import (
	"errors"

	ms "github.com/mitchellh/mapstructure"
)

// Bind decodes the request parameters into the struct pointed to by v.
// Fields are matched by their `form` tag, falling back to the field name.
// String values are coerced into the field types. A parameter sent several
// times, or a comma separated value, binds to a slice field. Unknown
// parameters are ignored.
//
//	type filter struct {
//		Query string   `form:"q"`
//		Limit int      `form:"limit"`
//		Tags  []string `form:"tag"`
//	}
//	var f filter
//	if err := c.Bind(&f); err != nil { ... }
func (c *Request) Bind(v any) error {
	if v == nil {
		return errors.New("ctx: bind target is nil")
	}
	in := make(map[string]any, len(c.form()))
	for k, vs := range c.form() {
		switch len(vs) {
		case 0:
		case 1:
			in[k] = vs[0]
		default:
			in[k] = append([]string(nil), vs...)
		}
	}
	dec, err := ms.NewDecoder(&ms.DecoderConfig{
		TagName:          "form",
		Result:           v,
		WeaklyTypedInput: true,
		DecodeHook:       ms.StringToSliceHookFunc(","),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
