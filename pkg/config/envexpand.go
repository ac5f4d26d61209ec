package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR_NAME}} placeholders in YAML content with values from
// the process environment. Shell-style $VAR and ${VAR} are left untouched so
// cron strings, regexes and prices such as "$70,000" survive unchanged.
//
//	telegram:
//	  api_url: "{{.TELEGRAM_API_URL}}"
//
// Missing variables expand to the empty string. Content that does not parse
// as a template is returned as-is and left for the YAML parser to reject.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
