package redact

import (
	"strings"
	"testing"
)

func TestURLs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "https with api key query",
			in:   `dial tcp: https://eth-mainnet.example.com/v3/abcd1234?apikey=secret: connection refused`,
			want: `dial tcp: https://eth-mainnet.example.com/***: connection refused`,
		},
		{
			name: "plain http",
			in:   "request to http://localhost:8545/rpc failed",
			want: "request to http://localhost:8545/***",
		},
		{
			name: "no url",
			in:   "pending block rejected",
			want: "pending block rejected",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := URLs(tc.in)
			if !strings.Contains(got, tc.want) && got != tc.want {
				t.Errorf("URLs(%q) = %q, want to contain %q", tc.in, got, tc.want)
			}
			if strings.Contains(got, "secret") {
				t.Errorf("URLs(%q) leaked secret: %q", tc.in, got)
			}
		})
	}
}
