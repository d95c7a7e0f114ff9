package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFlagMapping(t *testing.T) {
	mapping, fields := buildFlagMapping()
	require.NotEmpty(t, fields)

	t.Run("nested scalar fields get dashed flag names", func(t *testing.T) {
		assert.Equal(t, "server.http_port", mapping["server-http-port"])
		assert.Equal(t, "storage.type", mapping["storage-type"])
		assert.Equal(t, "auth.aws.region", mapping["auth-aws-region"])
		assert.Equal(t, "keys.default_rsa_size", mapping["keys-default-rsa-size"])
		assert.Equal(t, "observability.log_level", mapping["observability-log-level"])
	})

	t.Run("slices and maps are excluded", func(t *testing.T) {
		assert.NotContains(t, mapping, "keys-allowed-rsa-sizes")
		assert.NotContains(t, mapping, "auth-accounts")
	})
}

func TestRegisterFlags(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flagSet)

	port := flagSet.Lookup("server-http-port")
	require.NotNil(t, port)
	assert.Equal(t, "int", port.Value.Type())

	storageType := flagSet.Lookup("storage-type")
	require.NotNil(t, storageType)
	assert.Equal(t, "string", storageType.Value.Type())

	// Registering twice must not panic on duplicates
	RegisterFlags(flagSet)
}
