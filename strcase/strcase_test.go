package strcase_test

import (
	"testing"

	"github.com/sqlmate/dbcore/strcase"
	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"ConnectionID": "connection_id",
		"SSHEnabled":   "ssh_enabled",
		"Host":         "host",
		"id":           "id",
		"TLSConfig":    "tls_config",
	}

	for in, want := range cases {
		assert.Equal(t, want, strcase.Snake(in), in)
	}
}

func TestScreamingSnake(t *testing.T) {
	assert.Equal(t, "CONNECTION_ID", strcase.ScreamingSnake("ConnectionID"))
	assert.Equal(t, "ERROR", strcase.ScreamingSnake("error"))
}
