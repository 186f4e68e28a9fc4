package ingest

import "testing"

func TestFetchConfigWithDefaults(t *testing.T) {
	fallback := FetchConfig{TimeoutSeconds: 30, MaxRetries: 3, RateLimitRPS: 1.0}

	tests := []struct {
		name string
		in   FetchConfig
		want FetchConfig
	}{
		{"all zero", FetchConfig{}, fallback},
		{
			"partial override",
			FetchConfig{RateLimitRPS: 0.5},
			FetchConfig{TimeoutSeconds: 30, MaxRetries: 3, RateLimitRPS: 0.5},
		},
		{
			"full override",
			FetchConfig{TimeoutSeconds: 60, MaxRetries: 5, RateLimitRPS: 2.0},
			FetchConfig{TimeoutSeconds: 60, MaxRetries: 5, RateLimitRPS: 2.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(fallback); got != tt.want {
				t.Errorf("withDefaults = %+v, want %+v", got, tt.want)
			}
		})
	}
}
