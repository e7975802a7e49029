package pkgurl

import (
	"errors"
	"testing"
)

const validSafeURL = "https://app.safe.global/transactions/tx?safe=eth:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045&id=multisig_0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045_0x1111111111111111111111111111111111111111111111111111111111111111"

func TestParseValidURL(t *testing.T) {
	res, err := Parse("https://app.safe.global/transactions/tx?safe=eth:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.ChainID != 1 {
		t.Fatalf("ChainID = %d, want 1", res.ChainID)
	}
	if res.SafeTxHash != nil {
		t.Fatal("expected no safeTxHash when id param absent")
	}
}

func TestParseUnknownHostRejected(t *testing.T) {
	_, err := Parse("https://evil.example.com/tx?safe=eth:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	if !errors.Is(err, ErrUnknownHost) {
		t.Fatalf("err = %v, want ErrUnknownHost", err)
	}
}

func TestParseUnknownChainPrefixRejected(t *testing.T) {
	_, err := Parse("https://app.safe.global/transactions/tx?safe=notachain:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	if !errors.Is(err, ErrUnknownChainPrefix) {
		t.Fatalf("err = %v, want ErrUnknownChainPrefix", err)
	}
}

func TestParseMissingSafeParamRejected(t *testing.T) {
	_, err := Parse("https://app.safe.global/transactions/tx?id=multisig_0x0_0x0")
	if !errors.Is(err, ErrMissingSafeParam) {
		t.Fatalf("err = %v, want ErrMissingSafeParam", err)
	}
}

func TestParseConflictingAddressRejected(t *testing.T) {
	u := "https://app.safe.global/transactions/tx?safe=eth:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045" +
		"&id=multisig_0x1111111111111111111111111111111111111111_0x" +
		"1111111111111111111111111111111111111111111111111111111111111111"
	_, err := Parse(u)
	if !errors.Is(err, ErrConflictingAddress) {
		t.Fatalf("err = %v, want ErrConflictingAddress", err)
	}
}
