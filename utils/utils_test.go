package utils

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	t.Run("String input", func(t *testing.T) {
		input := "hello"
		expected := sha1.Sum([]byte(input))
		result := Checksum(input)
		require.Equal(t, expected[:], result)
	})

	t.Run("Byte input", func(t *testing.T) {
		input := []byte{104, 101, 108, 108, 111}
		expected := sha1.Sum(input)
		result := Checksum(input)
		require.Equal(t, expected[:], result)
	})

	t.Run("Invalid input", func(t *testing.T) {
		input := 123

		defer func() {
			if result := recover(); result == nil {
				t.Errorf("Did not panic with invalid input")
			}
		}()

		_ = Checksum(input)
	})
}

func TestIsUnixAddr(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected bool
	}{
		{
			name:     "Unix socket address",
			host:     "/var/run/socket",
			expected: true,
		},
		{
			name:     "Non-Unix socket address",
			host:     "localhost:8080",
			expected: false,
		},
		{
			name:     "Empty string",
			host:     "",
			expected: false,
		},
		{
			name:     "Relative path",
			host:     "./socket",
			expected: false,
		},
		{
			name:     "Windows path",
			host:     "C:\\Program Files\\socket",
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsUnixAddr(test.host)
			require.Equal(t, test.expected, result)
		})
	}
}

func TestJoinHostPort(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{
			name:     "Hostname and port",
			host:     "localhost",
			port:     8080,
			expected: "localhost:8080",
		},
		{
			name:     "IPv4 and port",
			host:     "127.0.0.1",
			port:     8080,
			expected: "127.0.0.1:8080",
		},
		{
			name:     "IPv6 and port",
			host:     "::1",
			port:     8080,
			expected: "[::1]:8080",
		},
		{
			name:     "Unix socket address",
			host:     "/var/run/socket",
			expected: "/var/run/socket",
		},
		{
			name:     "Empty host with port",
			host:     "",
			port:     8080,
			expected: ":8080",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := JoinHostPort(test.host, test.port)
			require.Equal(t, test.expected, result)
		})
	}
}

func TestIsDeadlock(t *testing.T) {
	require.False(t, IsDeadlock(nil))
}
