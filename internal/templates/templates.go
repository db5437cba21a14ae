package templates

import (
	"os"
	"path/filepath"
)

const envTemplate = `# Secrets for the zimage server. Loaded on startup.
# OPENAI_API_KEY=
# HF_TOKEN=
`

const configTemplate = `# zimage server configuration.
# Values can be overridden with ZIMAGE_-prefixed environment variables.

host: localhost
port: 8000
environment: dev

# Address of the inference worker process.
worker_addr: localhost:8500
worker_timeout: 500

# Where generated images are archived: local or s3.
filesystem_type: local

# s3:
#   region_name: us-east-1
#   bucket_name: my-bucket
#   folder: outputs
#   access_key: ...
#   secret_key: ...
#   endpoint_url: https://s3.us-east-1.amazonaws.com

# pulsar:
#   url: pulsar://localhost:6650
`

func WriteEnv(path string) error {
	return writeFile(path, envTemplate)
}

func WriteConfig(path string) error {
	return writeFile(path, configTemplate)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), 0644)
}
