package build

import (
	"bytes"
	"fmt"

	"cssel/codec"
	"cssel/config"
	"cssel/state"
	"cssel/stylesheet"
)

// render serializes the stylesheet into requested output format.
func render(sheet *stylesheet.Stylesheet, values Values, format config.OutputFmt, env *state.LocalEnv) ([]byte, error) {
	switch format {
	case config.OutputFmtCss:
		var buf bytes.Buffer
		if _, err := sheet.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("unable to serialize stylesheet: %w", err)
		}
		return buf.Bytes(), nil
	case config.OutputFmtJson:
		data, err := codec.Encode(values)
		if err != nil {
			return nil, fmt.Errorf("unable to serialize stylesheet to json: %w", err)
		}
		return append(data, '\n'), nil
	case config.OutputFmtTemplate:
		out, err := expandTemplate(values, config.RenderTemplateFieldName, string(env.DefaultTemplate))
		if err != nil {
			return nil, fmt.Errorf("unable to expand output template: %w", err)
		}
		return []byte(out), nil
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
