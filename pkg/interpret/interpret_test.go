package interpret

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

func addrParam(name string, addr common.Address) Param {
	return Param{Name: name, Type: "address", Value: Value{Kind: KindAddress, Address: addr}}
}

func uintParam(name string, v *big.Int) Param {
	return Param{Name: name, Type: "uint256", Value: Value{Kind: KindUint, Uint: v}}
}

func TestERC20DetectorTransfer(t *testing.T) {
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	to := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")

	call := DecodedCall{
		Method:    "transfer",
		Operation: hashing.OperationCall,
		To:        token,
		Parameters: []Param{
			addrParam("to", to),
			uintParam("value", big.NewInt(1000)),
		},
	}

	interp, err := (ERC20Detector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected a match for a transfer call")
	}
	details, ok := interp.Details.(ERC20TransferDetails)
	if !ok {
		t.Fatalf("expected ERC20TransferDetails, got %T", interp.Details)
	}
	if details.Kind != "transfer" {
		t.Errorf("kind = %q, want transfer", details.Kind)
	}
	if details.To != addrTo20(to) {
		t.Errorf("to mismatch")
	}
}

func TestERC20DetectorApproveFlagsUnlimited(t *testing.T) {
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	spender := common.HexToAddress("0xcccc000000000000000000000000000000cccc")

	call := DecodedCall{
		Method:    "approve",
		Operation: hashing.OperationCall,
		To:        token,
		Parameters: []Param{
			addrParam("spender", spender),
			uintParam("value", maxUint256),
		},
	}

	interp, err := (ERC20Detector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp.Severity != SeverityWarning {
		t.Errorf("severity = %q, want %q for an unlimited approval", interp.Severity, SeverityWarning)
	}
	details := interp.Details.(ERC20TransferDetails)
	if !details.IsUnlimitedApproval {
		t.Error("expected IsUnlimitedApproval to be true for max uint256")
	}
}

func TestERC20DetectorApproveFiniteIsInfoSeverity(t *testing.T) {
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	spender := common.HexToAddress("0xcccc000000000000000000000000000000cccc")

	call := DecodedCall{
		Method:    "approve",
		Operation: hashing.OperationCall,
		To:        token,
		Parameters: []Param{
			addrParam("spender", spender),
			uintParam("value", big.NewInt(500)),
		},
	}

	interp, _ := (ERC20Detector{}).TryInterpret(call)
	if interp.Severity != SeverityInfo {
		t.Errorf("severity = %q, want %q for a finite approval", interp.Severity, SeverityInfo)
	}
}

func TestERC20DetectorNativeTransfer(t *testing.T) {
	to := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")
	call := DecodedCall{
		Operation: hashing.OperationCall,
		To:        to,
		RawData:   nil,
		Value:     big.NewInt(1),
	}

	interp, err := (ERC20Detector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected a match for empty calldata with nonzero value")
	}
	details := interp.Details.(ERC20TransferDetails)
	if details.Kind != "native-transfer" {
		t.Errorf("kind = %q, want native-transfer", details.Kind)
	}
}

func TestERC20DetectorIgnoresUnrelatedMethod(t *testing.T) {
	call := DecodedCall{
		Method:    "somethingElse",
		Operation: hashing.OperationCall,
		To:        common.HexToAddress("0xaaaa000000000000000000000000000000aaaa"),
	}
	interp, err := (ERC20Detector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match for an unrelated method")
	}
}

func TestSafePolicyDetectorOnlyMatchesCallsToTheSafeItself(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")

	call := DecodedCall{
		Method:      "changeThreshold",
		Operation:   hashing.OperationCall,
		To:          other,
		SafeAddress: safe,
		Parameters:  []Param{uintParam("_threshold", big.NewInt(2))},
	}
	interp, err := (SafePolicyDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match when the call target isn't the Safe itself")
	}

	call.To = safe
	interp, err = (SafePolicyDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected a match for changeThreshold against the Safe itself")
	}
	details := interp.Details.(SafePolicyDetails)
	if details.NewThreshold == nil || *details.NewThreshold != 2 {
		t.Errorf("NewThreshold = %v, want 2", details.NewThreshold)
	}
}

func TestSafePolicyDetectorFlagsContractOwner(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	newOwner := common.HexToAddress("0x3333333333333333333333333333333333333333")

	detector := SafePolicyDetector{
		ClassifyContract: func(a Address) bool { return a == addrTo20(newOwner) },
	}
	call := DecodedCall{
		Method:      "addOwnerWithThreshold",
		Operation:   hashing.OperationCall,
		To:          safe,
		SafeAddress: safe,
		Parameters: []Param{
			addrParam("owner", newOwner),
			uintParam("_threshold", big.NewInt(3)),
		},
	}

	interp, err := detector.TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	details := interp.Details.(SafePolicyDetails)
	if len(details.Warnings) == 0 {
		t.Fatal("expected a warning when the new owner classifies as a contract")
	}
}

func TestSafePolicyDetectorIgnoresUnrelatedMethod(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	call := DecodedCall{
		Method:      "execTransaction",
		Operation:   hashing.OperationCall,
		To:          safe,
		SafeAddress: safe,
	}
	interp, err := (SafePolicyDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match for a non-governance method, even against the Safe itself")
	}
}

func TestCowSwapPresignDetector(t *testing.T) {
	owner := common.HexToAddress("0x4444444444444444444444444444444444444444")
	orderUid := make([]byte, 56)
	for i := 0; i < 32; i++ {
		orderUid[i] = byte(i + 1)
	}
	copy(orderUid[32:52], owner.Bytes())
	orderUid[52], orderUid[53], orderUid[54], orderUid[55] = 0x00, 0x00, 0x00, 0x05

	call := DecodedCall{
		Method:    "setPreSignature",
		Operation: hashing.OperationCall,
		To:        settlementContract,
		Parameters: []Param{
			{Name: "orderUid", Type: "bytes", Value: Value{Kind: KindBytes, Bytes: orderUid}},
			{Name: "signed", Type: "bool", Value: Value{Kind: KindBool, Bool: true}},
		},
	}

	interp, err := (CowSwapPresignDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected a match for setPreSignature on the settlement contract")
	}
	details := interp.Details.(CowSwapPresignDetails)
	if details.Owner != addrTo20(owner) {
		t.Errorf("decoded owner mismatch")
	}
	if details.ValidTo != 5 {
		t.Errorf("validTo = %d, want 5", details.ValidTo)
	}
	if !details.Signed {
		t.Error("expected signed=true")
	}
}

func TestCowSwapPresignDetectorIgnoresOtherContracts(t *testing.T) {
	call := DecodedCall{
		Method:    "setPreSignature",
		Operation: hashing.OperationCall,
		To:        common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Parameters: []Param{
			{Name: "orderUid", Type: "bytes", Value: Value{Kind: KindBytes, Bytes: make([]byte, 56)}},
		},
	}
	interp, err := (CowSwapPresignDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match when the call isn't to the settlement contract")
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	to := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")

	reg := NewRegistry(nil)
	call := DecodedCall{
		Method:      "transfer",
		Operation:   hashing.OperationCall,
		To:          token,
		SafeAddress: safe,
		Parameters: []Param{
			addrParam("to", to),
			uintParam("value", big.NewInt(10)),
		},
	}

	interp, err := reg.Interpret(call, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil || interp.ID != IDERC20Transfer {
		t.Fatalf("expected the erc20 detector to win, got %+v", interp)
	}
}

func TestRegistrySkipsDisabledDetectors(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	to := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")

	reg := NewRegistry(nil)
	call := DecodedCall{
		Method:      "transfer",
		Operation:   hashing.OperationCall,
		To:          token,
		SafeAddress: safe,
		Parameters: []Param{
			addrParam("to", to),
			uintParam("value", big.NewInt(10)),
		},
	}

	interp, err := reg.Interpret(call, map[string]bool{IDERC20Transfer: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatalf("expected no match once erc20-transfer is disabled and nothing else matches, got %+v", interp)
	}
}

func TestGenericDetectorFallsBackToDescriptor(t *testing.T) {
	contract := common.HexToAddress("0x6666666666666666666666666666666666666666")
	idx := NewDescriptorIndex([]Descriptor{
		{
			ChainID: 1,
			Address: contract,
			Method:  "stake",
			Fields:  []DescriptorField{{Label: "Amount", ParamKey: "amount|_amount"}},
		},
	})
	detector := NewGenericDetector(idx)

	call := DecodedCall{
		Method:    "stake",
		Operation: hashing.OperationCall,
		To:        contract,
		ChainID:   1,
		Parameters: []Param{
			uintParam("amount", big.NewInt(42)),
		},
	}

	interp, err := detector.TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected the generic detector to match a descriptor-registered method")
	}
	details := interp.Details.(GenericDetails)
	if len(details.Fields) != 1 || details.Fields[0].Label != "Amount" {
		t.Fatalf("unexpected rendered fields: %+v", details.Fields)
	}
}

func TestGenericDetectorNoMatchWithoutDescriptor(t *testing.T) {
	detector := NewGenericDetector(NewDescriptorIndex(nil))
	call := DecodedCall{
		Method:    "unregisteredMethod",
		Operation: hashing.OperationCall,
		To:        common.HexToAddress("0x7777777777777777777777777777777777777777"),
	}
	interp, err := detector.TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match when no descriptor registers this (address, method)")
	}
}

// --- CowSwap TWAP: hand-built multiSend + createWithContext fixture ---

func word32(v uint64) []byte {
	b := make([]byte, 32)
	for i := 0; i < 8; i++ {
		b[31-i] = byte(v >> (8 * i))
	}
	return b
}

func addrWord(a common.Address) []byte {
	b := make([]byte, 32)
	copy(b[12:], a.Bytes())
	return b
}

func bigWord(v *big.Int) []byte {
	b := make([]byte, 32)
	v.FillBytes(b)
	return b
}

func buildCreateWithContextCalldata(sellToken, buyToken, receiver common.Address, partSellAmount, minPartLimit *big.Int, t0, n, tBetween, span uint64) []byte {
	var body []byte
	body = append(body, word32(32)...)                   // tupleOffset = 32
	body = append(body, addrWord(twapHandlerAddress)...) // handler
	body = append(body, make([]byte, 32)...)             // salt (zero)
	body = append(body, word32(96)...)                   // staticInput rel offset

	var content []byte
	content = append(content, addrWord(sellToken)...)
	content = append(content, addrWord(buyToken)...)
	content = append(content, addrWord(receiver)...)
	content = append(content, bigWord(partSellAmount)...)
	content = append(content, bigWord(minPartLimit)...)
	content = append(content, word32(t0)...)
	content = append(content, word32(n)...)
	content = append(content, word32(tBetween)...)
	content = append(content, word32(span)...)
	content = append(content, make([]byte, 32)...) // appData

	body = append(body, word32(uint64(len(content)))...)
	body = append(body, content...)

	data := make([]byte, 0, 4+len(body))
	data = append(data, createWithContextSelector[:]...)
	data = append(data, body...)
	return data
}

func buildApproveCalldata(spender common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 68)
	data = append(data, approveSelector[:]...)
	data = append(data, addrWord(spender)...)
	data = append(data, bigWord(amount)...)
	return data
}

func packMultiSendEntry(operation uint8, to common.Address, value *big.Int, data []byte) []byte {
	out := []byte{operation}
	out = append(out, to.Bytes()...)
	out = append(out, bigWord(value)...)
	out = append(out, bigWord(big.NewInt(int64(len(data))))...)
	out = append(out, data...)
	return out
}

func TestCowSwapTWAPDetectorDecodesBundledOrder(t *testing.T) {
	sellToken := common.HexToAddress("0x8888888888888888888888888888888888888888")
	buyToken := common.HexToAddress("0x9999999999999999999999999999999999999999")
	receiver := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	relayer := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	approveData := buildApproveCalldata(relayer, big.NewInt(5_000_000))
	createData := buildCreateWithContextCalldata(sellToken, buyToken, receiver, big.NewInt(1000), big.NewInt(990), 1700000000, 10, 3600, 36000)

	packed := append(
		packMultiSendEntry(0, sellToken, big.NewInt(0), approveData),
		packMultiSendEntry(0, composableCoWAddress, big.NewInt(0), createData)...,
	)

	call := DecodedCall{
		Method:    "multiSend",
		Operation: hashing.OperationDelegateCall,
		RawData:   packed,
	}

	interp, err := (CowSwapTWAPDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp == nil {
		t.Fatal("expected the TWAP detector to decode the bundled order")
	}
	details := interp.Details.(CowSwapTWAPDetails)
	if details.SellToken.Address != addrTo20(sellToken) {
		t.Errorf("sell token mismatch")
	}
	if details.BuyToken.Address != addrTo20(buyToken) {
		t.Errorf("buy token mismatch")
	}
	if details.NumberOfParts != 10 || details.TimeBetweenParts != 3600 {
		t.Errorf("unexpected order cadence: parts=%d interval=%d", details.NumberOfParts, details.TimeBetweenParts)
	}
	if details.TotalDuration != 10*3600 {
		t.Errorf("totalDuration = %d, want %d", details.TotalDuration, 10*3600)
	}
	if details.BundledApproval == nil {
		t.Fatal("expected the bundled approve call to be recognized")
	}
	if details.BundledApproval.Kind != "approve" {
		t.Errorf("bundled approval kind = %q, want approve", details.BundledApproval.Kind)
	}
}

func TestCowSwapTWAPDetectorIgnoresPlainMultiSend(t *testing.T) {
	unrelated := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	packed := packMultiSendEntry(0, unrelated, big.NewInt(0), []byte{0x01, 0x02})

	call := DecodedCall{
		Method:    "multiSend",
		Operation: hashing.OperationDelegateCall,
		RawData:   packed,
	}
	interp, err := (CowSwapTWAPDetector{}).TryInterpret(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interp != nil {
		t.Fatal("expected no match for a multiSend bundle with no createWithContext call")
	}
}
