package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhooks(t *testing.T) {
	hooks, err := ParseWebhooks([]byte(`
webhooks:
  - name: bridge
    url: https://hooks.example.com/oncall
    headers:
      - key: Authorization
        value: Bearer abc
    events: [call]
    body: '{"status": "{{call.status}}"}'
  - name: audit
    url: http://audit.internal/events
    method: put
`))
	require.NoError(t, err)
	require.Len(t, hooks, 2)

	assert.Equal(t, "POST", hooks[0].Method)
	assert.Equal(t, "Authorization", hooks[0].Headers[0].Key)
	assert.True(t, hooks[0].Accepts(model.WebhookEventCall))
	assert.False(t, hooks[0].Accepts(model.WebhookEventDecision))

	assert.Equal(t, "PUT", hooks[1].Method)
	assert.True(t, hooks[1].Accepts(model.WebhookEventDecision))
}

func TestParseWebhooksRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing url":    "webhooks:\n  - name: a\n",
		"bad method":     "webhooks:\n  - name: a\n    url: http://x.io\n    method: DELETE\n",
		"unknown event":  "webhooks:\n  - name: a\n    url: http://x.io\n    events: [resolved]\n",
		"duplicate name": "webhooks:\n  - name: a\n    url: http://x.io\n  - name: a\n    url: http://y.io\n",
		"header key":     "webhooks:\n  - name: a\n    url: http://x.io\n    headers:\n      - value: v\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhooks([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWebhooks(t *testing.T) {
	hooks, err := LoadWebhooks("")
	require.NoError(t, err)
	assert.Empty(t, hooks)

	path := filepath.Join(t.TempDir(), "webhooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("webhooks:\n  - name: a\n    url: http://x.io\n"), 0o600))
	hooks, err = LoadWebhooks(path)
	require.NoError(t, err)
	require.Len(t, hooks, 1)

	_, err = LoadWebhooks(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
