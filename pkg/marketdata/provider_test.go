package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/pkg/errors"
)

func TestNewProvider(t *testing.T) {
	log := logger.NewNopLogger()

	tests := []struct {
		name         string
		providerType ProviderType
		cfg          Config
		wantErr      errors.ErrorCode
	}{
		{
			name:         "binance needs no credentials",
			providerType: ProviderBinance,
		},
		{
			name:         "polygon with api key",
			providerType: ProviderPolygon,
			cfg:          Config{PolygonAPIKey: "test-key"},
		},
		{
			name:         "polygon without api key",
			providerType: ProviderPolygon,
			wantErr:      errors.ErrCodeInvalidConfiguration,
		},
		{
			name:         "unknown provider",
			providerType: ProviderType("alpaca"),
			wantErr:      errors.ErrCodeInvalidProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.providerType, tt.cfg, log)
			if tt.wantErr != 0 {
				assert.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantErr))

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, provider)
		})
	}
}
