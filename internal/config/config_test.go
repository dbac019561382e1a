package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBoolEnvAcceptsOnlySpecSet(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		require.True(t, parseBoolEnv(v), v)
	}
	for _, v := range []string{"0", "false", "no", "off", "", "maybe"} {
		require.False(t, parseBoolEnv(v), v)
	}
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	require.Equal(t, []string{"s1", "s2", "s3"}, splitCSV("s1, s2 ,s3"))
	require.Equal(t, []string{"s1"}, splitCSV("s1,,"))
}

func TestLoadMetaDefaults(t *testing.T) {
	m, err := LoadMeta()
	require.NoError(t, err)
	require.Equal(t, 1, m.ReplicationFactor)
	require.Contains(t, m.StorageNodes, "storage-01")
}
