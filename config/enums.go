package config

// Specification of requested output type.
// ENUM(css, json, template)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtCss:
		return ".css"
	case OutputFmtJson:
		return ".json"
	case OutputFmtTemplate:
		return ".txt"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
