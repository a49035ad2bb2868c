package utils

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@dbhost:5433/ltr", "dbhost:5433"},
		{"default port", "postgresql://user:pw@dbhost/ltr", "dbhost:5432"},
		{"short scheme", "postgres://user@dbhost:5432/ltr?sslmode=disable", "dbhost:5432"},
		{"no credentials", "postgresql://dbhost:6543/ltr", "dbhost:6543"},
		{"no match", "mysql://dbhost/ltr", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "nats://natshost:4223", "natshost:4223"},
		{"default port", "nats://natshost", "natshost:4222"},
		{"with user", "nats://user:pw@natshost:4222", "natshost:4222"},
		{"server list", "nats://a:4222,nats://b:4222", "a:4222"},
		{"no match", "http://natshost", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	assert.NoError(t, WaitForTCP(ln.Addr().String(), time.Second))

	addr := ln.Addr().String()
	ln.Close()
	assert.Error(t, WaitForTCP(addr, 300*time.Millisecond))
}
