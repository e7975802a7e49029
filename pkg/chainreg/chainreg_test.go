package chainreg

import "testing"

func TestByPrefixKnownChains(t *testing.T) {
	cases := map[string]uint64{
		"eth":   1,
		"sep":   11155111,
		"matic": 137,
		"arb1":  42161,
		"oeth":  10,
		"gno":   100,
		"base":  8453,
		"linea": 59144,
	}
	for prefix, wantID := range cases {
		e, ok := ByPrefix(prefix)
		if !ok {
			t.Fatalf("prefix %q not found", prefix)
		}
		if e.ChainID != wantID {
			t.Fatalf("prefix %q chain id = %d, want %d", prefix, e.ChainID, wantID)
		}
	}
}

func TestByPrefixUnknownFailsClosed(t *testing.T) {
	if _, ok := ByPrefix("does-not-exist"); ok {
		t.Fatal("expected unknown prefix to fail")
	}
}

func TestByChainIDRoundTrip(t *testing.T) {
	e, ok := ByChainID(1)
	if !ok || e.Prefix != "eth" {
		t.Fatalf("ByChainID(1) = %+v, %v", e, ok)
	}
}

func TestOnlyBeaconChainsOfferIndependentConsensus(t *testing.T) {
	e, _ := ByPrefix("eth")
	if e.Consensus != ConsensusBeacon {
		t.Fatal("mainnet must use beacon consensus")
	}
	e, _ = ByPrefix("linea")
	if e.Consensus == ConsensusBeacon {
		t.Fatal("linea is not a beacon-verified chain")
	}
}
