package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple substitution with {{.VAR}}",
			input: "username: {{.B2CHAT_USERNAME}}",
			env:   map[string]string{"B2CHAT_USERNAME": "acme-bot"},
			want:  "username: acme-bot",
		},
		{
			name:  "literal ${VAR} is NOT expanded (no collision)",
			input: "pattern: ${USER_ID}",
			env:   map[string]string{"USER_ID": "123"},
			want:  "pattern: ${USER_ID}",
		},
		{
			name:  "literal $ in value is preserved",
			input: "password: p@ss$word",
			env:   map[string]string{},
			want:  "password: p@ss$word",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: {{.PROTOCOL}}://{{.HOST}}:{{.PORT}}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "api.b2chat.example",
				"PORT":     "443",
			},
			want: "url: https://api.b2chat.example:443",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: {{.MISSING_VAR}}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "content without templates passes through",
			input: "batch_size: 1000",
			env:   map[string]string{},
			want:  "batch_size: 1000",
		},
		{
			name:  "malformed template returns original",
			input: "broken: {{.UNCLOSED",
			env:   map[string]string{},
			want:  "broken: {{.UNCLOSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExpandEnvProducesValidYAML(t *testing.T) {
	t.Setenv("TEST_EXPAND_HOST", "db.internal")

	input := []byte("host: {{.TEST_EXPAND_HOST}}\nport: 5432\n")
	expanded := ExpandEnv(input)

	var doc struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	assert.NoError(t, yaml.Unmarshal(expanded, &doc))
	assert.Equal(t, "db.internal", doc.Host)
	assert.Equal(t, 5432, doc.Port)
}
