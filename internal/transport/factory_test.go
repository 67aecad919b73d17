package transport

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
)

func TestNew(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	tests := []struct {
		name    string
		cfg     config.TransportConfig
		want    any
		wantErr error
	}{
		{name: "memory", cfg: config.TransportConfig{Type: "memory"}, want: &MemoryTransport{}},
		{name: "redis", cfg: config.TransportConfig{Type: "redis", Redis: config.TransportRedisConfig{Addr: mr.Addr()}}, want: &RedisTransport{}},
		{name: "default is redis", cfg: config.TransportConfig{Redis: config.TransportRedisConfig{Addr: mr.Addr()}}, want: &RedisTransport{}},
		{name: "unknown", cfg: config.TransportConfig{Type: "kafka"}, wantErr: cnst.ErrUnsupportedTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(context.Background(), zap.NewNop(), &tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tr)
				return
			}
			require.NoError(t, err)
			defer tr.Close()
			assert.IsType(t, tt.want, tr)
		})
	}
}
