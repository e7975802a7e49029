package evidence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/rpc"
	"github.com/safelens/evidence/pkg/simulation"
	"github.com/safelens/evidence/pkg/witness"
)

// Canonical JSON wire format (§6): fields in schema order, every hex string
// lowercased, byte values as 0x-prefixed hex (never base64), u256 quantities
// as decimal strings, timestamps RFC3339 UTC. Marshal/Unmarshal round-trip
// byte-stably: unmarshalling a canonical document and re-marshalling it
// reproduces the input exactly.

type wirePackage struct {
	Version     string          `json:"version"`
	PackageID   string          `json:"packageId"`
	SafeAddress string          `json:"safeAddress"`
	SafeTxHash  string          `json:"safeTxHash"`
	ChainID     uint64          `json:"chainId"`
	Transaction wireTransaction `json:"transaction"`

	Confirmations []wireConfirmation `json:"confirmations"`
	Sources       wireSources        `json:"sources"`
	PackagedAt    string             `json:"packagedAt"`

	OnchainPolicyProof *wirePolicyProof    `json:"onchainPolicyProof,omitempty"`
	ConsensusProof     *wireConsensusProof `json:"consensusProof,omitempty"`
	Simulation         *wireSimulation     `json:"simulation,omitempty"`
	SimulationWitness  *wireWitness        `json:"simulationWitness,omitempty"`

	WitnessGenerationError string              `json:"witnessGenerationError,omitempty"`
	ExportContract         *wireExportContract `json:"exportContract,omitempty"`
}

type wireTransaction struct {
	To             string `json:"to"`
	Value          string `json:"value"`
	Data           string `json:"data"`
	Operation      uint8  `json:"operation"`
	SafeTxGas      string `json:"safeTxGas"`
	BaseGas        string `json:"baseGas"`
	GasPrice       string `json:"gasPrice"`
	GasToken       string `json:"gasToken"`
	RefundReceiver string `json:"refundReceiver"`
	Nonce          string `json:"nonce"`
}

type wireConfirmation struct {
	Owner          string `json:"owner"`
	Signature      string `json:"signature"`
	SubmissionDate string `json:"submissionDate"`
}

type wireSources struct {
	IndexerURL string `json:"indexerUrl"`
}

type wireStorageProofEntry struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Proof []string `json:"proof"`
}

type wireAccountProof struct {
	Address      string                  `json:"address"`
	Balance      string                  `json:"balance"`
	CodeHash     string                  `json:"codeHash"`
	Nonce        uint64                  `json:"nonce"`
	StorageHash  string                  `json:"storageHash"`
	AccountProof []string                `json:"accountProof"`
	StorageProof []wireStorageProofEntry `json:"storageProof"`
}

type wireDecodedPolicy struct {
	Owners          []string `json:"owners"`
	Threshold       uint64   `json:"threshold"`
	Nonce           uint64   `json:"nonce"`
	Modules         []string `json:"modules"`
	Guard           string   `json:"guard"`
	FallbackHandler string   `json:"fallbackHandler"`
	Singleton       string   `json:"singleton"`
}

type wireTrust struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
}

type wirePolicyProof struct {
	BlockNumber   uint64            `json:"blockNumber"`
	StateRoot     string            `json:"stateRoot"`
	AccountProof  wireAccountProof  `json:"accountProof"`
	DecodedPolicy wireDecodedPolicy `json:"decodedPolicy"`
	Trust         *wireTrust        `json:"trust,omitempty"`
}

type wireConsensusProof struct {
	Mode                     string          `json:"mode"`
	StateRoot                string          `json:"stateRoot"`
	BlockNumber              uint64          `json:"blockNumber"`
	VerifiedStateRootMatches bool            `json:"verifiedStateRootMatches"`
	VerifiedBlockNumber      uint64          `json:"verifiedBlockNumber"`
	Payload                  json.RawMessage `json:"payload,omitempty"`
}

type wireLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type wireNativeTransfer struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type wireStateDiff struct {
	Address string `json:"address"`
	Key     string `json:"key"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

type wireSimulation struct {
	Success         bool                 `json:"success"`
	ReturnData      *string              `json:"returnData"`
	RevertData      *string              `json:"revertData,omitempty"`
	GasUsed         uint64               `json:"gasUsed"`
	Logs            []wireLog            `json:"logs"`
	NativeTransfers []wireNativeTransfer `json:"nativeTransfers,omitempty"`
	StateDiffs      []wireStateDiff      `json:"stateDiffs,omitempty"`
	BlockNumber     uint64               `json:"blockNumber"`
	BlockTimestamp  uint64               `json:"blockTimestamp,omitempty"`
	TraceAvailable  bool                 `json:"traceAvailable"`
	Trust           *wireTrust           `json:"trust,omitempty"`
}

type wireSlotValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireReplayBlock struct {
	Timestamp     uint64 `json:"timestamp"`
	GasLimit      uint64 `json:"gasLimit"`
	BaseFeePerGas string `json:"baseFeePerGas"`
	Beneficiary   string `json:"beneficiary"`
	PrevRandao    string `json:"prevRandao"`
}

type wireReplayAccount struct {
	Address string          `json:"address"`
	Balance string          `json:"balance"`
	Nonce   uint64          `json:"nonce"`
	Code    string          `json:"code"`
	Storage []wireSlotValue `json:"storage,omitempty"`
}

type wireWitness struct {
	ChainID          uint64           `json:"chainId"`
	SafeAddress      string           `json:"safeAddress"`
	BlockNumber      uint64           `json:"blockNumber"`
	StateRoot        string           `json:"stateRoot"`
	SafeAccountProof wireAccountProof `json:"safeAccountProof"`
	OverriddenSlots  []wireSlotValue  `json:"overriddenSlots"`
	SimulationDigest string           `json:"simulationDigest"`

	ReplayBlock    *wireReplayBlock    `json:"replayBlock,omitempty"`
	ReplayAccounts []wireReplayAccount `json:"replayAccounts,omitempty"`
	ReplayCaller   string              `json:"replayCaller,omitempty"`
	ReplayGasLimit *uint64             `json:"replayGasLimit,omitempty"`
	WitnessOnly    bool                `json:"witnessOnly,omitempty"`
}

type wireArtifacts struct {
	ConsensusProof     bool `json:"consensusProof"`
	OnchainPolicyProof bool `json:"onchainPolicyProof"`
	Simulation         bool `json:"simulation"`
}

type wireExportContract struct {
	Mode              string        `json:"mode"`
	Status            string        `json:"status"`
	IsFullyVerifiable bool          `json:"isFullyVerifiable"`
	Reasons           []string      `json:"reasons"`
	Artifacts         wireArtifacts `json:"artifacts"`
	Diagnostics       []string      `json:"diagnostics,omitempty"`
}

func addrHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func bytesHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// MarshalPackage renders p in the canonical wire format. The output carries
// no trailing newline and is byte-stable for a given package.
func MarshalPackage(p Package) ([]byte, error) {
	w := wirePackage{
		Version:     string(p.Version),
		PackageID:   p.PackageID.String(),
		SafeAddress: addrHex(p.SafeAddress),
		SafeTxHash:  p.SafeTxHash.Hex(),
		ChainID:     p.ChainID,
		Transaction: wireTransaction{
			To:             addrHex(p.Transaction.To),
			Value:          decOrZero(p.Transaction.Value),
			Data:           bytesHex(p.Transaction.Data),
			Operation:      uint8(p.Transaction.Operation),
			SafeTxGas:      decOrZero(p.Transaction.SafeTxGas),
			BaseGas:        decOrZero(p.Transaction.BaseGas),
			GasPrice:       decOrZero(p.Transaction.GasPrice),
			GasToken:       addrHex(p.Transaction.GasToken),
			RefundReceiver: addrHex(p.Transaction.RefundReceiver),
			Nonce:          decOrZero(p.Transaction.Nonce),
		},
		Sources:                wireSources{IndexerURL: p.Sources.IndexerURL},
		PackagedAt:             p.PackagedAt.UTC().Format(time.RFC3339),
		WitnessGenerationError: p.WitnessGenerationError,
	}

	w.Confirmations = make([]wireConfirmation, len(p.Confirmations))
	for i, c := range p.Confirmations {
		w.Confirmations[i] = wireConfirmation{
			Owner:          addrHex(c.Owner),
			Signature:      bytesHex(c.Signature),
			SubmissionDate: c.SubmissionDate.UTC().Format(time.RFC3339),
		}
	}

	if p.OnchainPolicyProof != nil {
		w.OnchainPolicyProof = policyProofToWire(p.OnchainPolicyProof)
	}
	if p.ConsensusProof != nil {
		cp, err := consensusProofToWire(p.ConsensusProof)
		if err != nil {
			return nil, err
		}
		w.ConsensusProof = cp
	}
	if p.Simulation != nil {
		w.Simulation = simulationToWire(p.Simulation)
	}
	if p.Witness != nil {
		w.SimulationWitness = witnessToWire(p.Witness)
	}
	if p.ExportContract != nil {
		w.ExportContract = exportContractToWire(p.ExportContract)
	}

	return json.Marshal(w)
}

func accountProofToWire(ap rpc.AccountProof) wireAccountProof {
	out := wireAccountProof{
		Address:     addrHex(ap.Address),
		Balance:     decOrZero(ap.Balance),
		CodeHash:    ap.CodeHash.Hex(),
		Nonce:       ap.Nonce,
		StorageHash: ap.StorageHash.Hex(),
	}
	out.AccountProof = make([]string, len(ap.AccountProof))
	for i, n := range ap.AccountProof {
		out.AccountProof[i] = bytesHex(n)
	}
	out.StorageProof = make([]wireStorageProofEntry, len(ap.StorageProof))
	for i, sp := range ap.StorageProof {
		entry := wireStorageProofEntry{
			Key:   sp.Key.Hex(),
			Value: bytesHex(sp.Value[:]),
		}
		entry.Proof = make([]string, len(sp.Proof))
		for j, n := range sp.Proof {
			entry.Proof[j] = bytesHex(n)
		}
		out.StorageProof[i] = entry
	}
	return out
}

func trustToWire(verdict, reason string) *wireTrust {
	return &wireTrust{Verdict: verdict, Reason: reason}
}

func policyProofToWire(pp *policyproof.OnchainPolicyProof) *wirePolicyProof {
	out := &wirePolicyProof{
		BlockNumber:  pp.BlockNumber,
		StateRoot:    pp.StateRoot.Hex(),
		AccountProof: accountProofToWire(pp.AccountProof),
		DecodedPolicy: wireDecodedPolicy{
			Threshold:       pp.DecodedPolicy.Threshold,
			Nonce:           pp.DecodedPolicy.Nonce,
			Guard:           addrHex(pp.DecodedPolicy.Guard),
			FallbackHandler: addrHex(pp.DecodedPolicy.FallbackHandler),
			Singleton:       addrHex(pp.DecodedPolicy.Singleton),
		},
	}
	out.DecodedPolicy.Owners = make([]string, len(pp.DecodedPolicy.Owners))
	for i, o := range pp.DecodedPolicy.Owners {
		out.DecodedPolicy.Owners[i] = addrHex(o)
	}
	out.DecodedPolicy.Modules = make([]string, len(pp.DecodedPolicy.Modules))
	for i, m := range pp.DecodedPolicy.Modules {
		out.DecodedPolicy.Modules[i] = addrHex(m)
	}
	if pp.Trust != nil {
		out.Trust = trustToWire(pp.Trust.Verdict, pp.Trust.Reason)
	}
	return out
}

func consensusProofToWire(cp *ConsensusProof) (*wireConsensusProof, error) {
	out := &wireConsensusProof{
		Mode:                     string(cp.Mode),
		StateRoot:                cp.StateRoot.Hex(),
		BlockNumber:              cp.BlockNumber,
		VerifiedStateRootMatches: cp.VerifiedStateRootMatches,
		VerifiedBlockNumber:      cp.VerifiedBlockNumber,
	}
	if cp.Payload != nil {
		// encoding/json sorts map keys, so the payload stays byte-stable.
		raw, err := json.Marshal(cp.Payload)
		if err != nil {
			return nil, fmt.Errorf("evidence: marshal consensus payload: %w", err)
		}
		out.Payload = raw
	}
	return out, nil
}

func simulationToWire(s *simulation.Simulation) *wireSimulation {
	out := &wireSimulation{
		Success:        s.Success,
		GasUsed:        s.GasUsed,
		BlockNumber:    s.BlockNumber,
		BlockTimestamp: s.BlockTimestamp,
		TraceAvailable: s.TraceAvailable,
	}
	if s.ReturnData != nil {
		rd := bytesHex(s.ReturnData)
		out.ReturnData = &rd
	}
	if s.RevertData != nil {
		rd := bytesHex(s.RevertData)
		out.RevertData = &rd
	}
	out.Logs = make([]wireLog, len(s.Logs))
	for i, l := range s.Logs {
		topics := make([]string, len(l.Topics))
		for j, t := range l.Topics {
			topics[j] = t.Hex()
		}
		out.Logs[i] = wireLog{Address: addrHex(l.Address), Topics: topics, Data: bytesHex(l.Data)}
	}
	if len(s.NativeTransfers) > 0 {
		out.NativeTransfers = make([]wireNativeTransfer, len(s.NativeTransfers))
		for i, nt := range s.NativeTransfers {
			out.NativeTransfers[i] = wireNativeTransfer{
				From:  addrHex(nt.From),
				To:    addrHex(nt.To),
				Value: decOrZero(nt.Value),
			}
		}
	}
	if len(s.StateDiffs) > 0 {
		out.StateDiffs = make([]wireStateDiff, len(s.StateDiffs))
		for i, d := range s.StateDiffs {
			out.StateDiffs[i] = wireStateDiff{
				Address: addrHex(d.Address),
				Key:     d.Key.Hex(),
				Before:  d.Before.Hex(),
				After:   d.After.Hex(),
			}
		}
	}
	if s.Trust != nil {
		out.Trust = trustToWire(s.Trust.Verdict, s.Trust.Reason)
	}
	return out
}

func witnessToWire(w *witness.SimulationWitness) *wireWitness {
	out := &wireWitness{
		SafeAddress:      addrHex(w.SafeAddress),
		BlockNumber:      w.BlockNumber,
		StateRoot:        w.StateRoot.Hex(),
		SafeAccountProof: accountProofToWire(w.SafeAccountProof),
		SimulationDigest: w.SimulationDigest.Hex(),
		ReplayGasLimit:   w.ReplayGasLimit,
		WitnessOnly:      w.WitnessOnly,
	}
	if w.ChainID != nil {
		out.ChainID = w.ChainID.Uint64()
	}
	out.OverriddenSlots = make([]wireSlotValue, len(w.OverriddenSlots))
	for i, sv := range w.OverriddenSlots {
		out.OverriddenSlots[i] = wireSlotValue{Key: sv.Key.Hex(), Value: sv.Value.Hex()}
	}
	if w.ReplayBlock != nil {
		out.ReplayBlock = &wireReplayBlock{
			Timestamp:     w.ReplayBlock.Timestamp,
			GasLimit:      w.ReplayBlock.GasLimit,
			BaseFeePerGas: decOrZero(w.ReplayBlock.BaseFeePerGas),
			Beneficiary:   addrHex(w.ReplayBlock.Beneficiary),
			PrevRandao:    w.ReplayBlock.PrevRandao.Hex(),
		}
	}
	if w.ReplayAccounts != nil {
		addrs := make([]common.Address, 0, len(w.ReplayAccounts))
		for a := range w.ReplayAccounts {
			addrs = append(addrs, a)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })
		out.ReplayAccounts = make([]wireReplayAccount, len(addrs))
		for i, a := range addrs {
			acct := w.ReplayAccounts[a]
			entry := wireReplayAccount{
				Address: addrHex(a),
				Balance: decOrZero(acct.Balance),
				Nonce:   acct.Nonce,
				Code:    bytesHex(acct.Code),
			}
			if len(acct.Storage) > 0 {
				slots := make([]common.Hash, 0, len(acct.Storage))
				for s := range acct.Storage {
					slots = append(slots, s)
				}
				sort.Slice(slots, func(i, j int) bool { return slots[i].Hex() < slots[j].Hex() })
				entry.Storage = make([]wireSlotValue, len(slots))
				for j, s := range slots {
					entry.Storage[j] = wireSlotValue{Key: s.Hex(), Value: acct.Storage[s].Hex()}
				}
			}
			out.ReplayAccounts[i] = entry
		}
	}
	if w.ReplayCaller != nil {
		out.ReplayCaller = addrHex(*w.ReplayCaller)
	}
	return out
}

func exportContractToWire(c *ExportContract) *wireExportContract {
	out := &wireExportContract{
		Mode:              string(c.Mode),
		Status:            string(c.Status),
		IsFullyVerifiable: c.IsFullyVerifiable,
		Artifacts: wireArtifacts{
			ConsensusProof:     c.Artifacts.ConsensusProof,
			OnchainPolicyProof: c.Artifacts.OnchainPolicyProof,
			Simulation:         c.Artifacts.Simulation,
		},
		Diagnostics: c.Diagnostics,
	}
	out.Reasons = make([]string, len(c.Reasons))
	for i, r := range c.Reasons {
		out.Reasons[i] = string(r)
	}
	return out
}

// fieldError is the structural-validation error shape §7 requires: the
// field path that failed and the pattern it was expected to match.
func fieldError(path, got, want string) error {
	return fmt.Errorf("evidence: %s: got %q, want %s", path, got, want)
}

func parseAddr(path, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fieldError(path, s, "a 0x-prefixed 20-byte hex address")
	}
	return common.HexToAddress(s), nil
}

func parseHash(path, s string) (common.Hash, error) {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return common.Hash{}, fieldError(path, s, "a 0x-prefixed 32-byte hex hash")
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return common.Hash{}, fieldError(path, s, "a 0x-prefixed 32-byte hex hash")
	}
	return common.HexToHash(s), nil
}

func parseBytes(path, s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fieldError(path, s, "0x-prefixed hex bytes")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fieldError(path, s, "0x-prefixed hex bytes")
	}
	return b, nil
}

// parseQuantity accepts a u256 as either a decimal string or a 0x-hex
// quantity, per §3's Transaction value encoding.
func parseQuantity(path, s string) (*big.Int, error) {
	if s == "" {
		return nil, fieldError(path, s, "a decimal or 0x-hex u256 quantity")
	}
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fieldError(path, s, "a decimal or 0x-hex u256 quantity")
	}
	return v, nil
}

func parseTime(path, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fieldError(path, s, "an RFC3339 timestamp")
	}
	return t, nil
}

// UnmarshalPackage parses a canonical wire document back into a Package,
// validating structure as it goes; errors carry the offending field path.
func UnmarshalPackage(data []byte) (Package, error) {
	var w wirePackage
	if err := json.Unmarshal(data, &w); err != nil {
		return Package{}, fmt.Errorf("evidence: parse package json: %w", err)
	}

	var p Package
	switch Version(w.Version) {
	case Version10, Version11, Version12:
		p.Version = Version(w.Version)
	default:
		return Package{}, fieldError("version", w.Version, `one of "1.0", "1.1", "1.2"`)
	}

	id, err := uuid.Parse(w.PackageID)
	if err != nil {
		return Package{}, fieldError("packageId", w.PackageID, "a UUID")
	}
	p.PackageID = id

	if p.SafeAddress, err = parseAddr("safeAddress", w.SafeAddress); err != nil {
		return Package{}, err
	}
	if p.SafeTxHash, err = parseHash("safeTxHash", w.SafeTxHash); err != nil {
		return Package{}, err
	}
	p.ChainID = w.ChainID

	if p.Transaction, err = transactionFromWire(w.Transaction); err != nil {
		return Package{}, err
	}

	p.Confirmations = make([]Confirmation, len(w.Confirmations))
	for i, c := range w.Confirmations {
		path := fmt.Sprintf("confirmations[%d]", i)
		owner, err := parseAddr(path+".owner", c.Owner)
		if err != nil {
			return Package{}, err
		}
		sig, err := parseBytes(path+".signature", c.Signature)
		if err != nil {
			return Package{}, err
		}
		at, err := parseTime(path+".submissionDate", c.SubmissionDate)
		if err != nil {
			return Package{}, err
		}
		p.Confirmations[i] = Confirmation{Owner: owner, Signature: sig, SubmissionDate: at}
	}

	p.Sources = Sources{IndexerURL: w.Sources.IndexerURL}
	if p.PackagedAt, err = parseTime("packagedAt", w.PackagedAt); err != nil {
		return Package{}, err
	}

	if w.OnchainPolicyProof != nil {
		if p.OnchainPolicyProof, err = policyProofFromWire(*w.OnchainPolicyProof); err != nil {
			return Package{}, err
		}
	}
	if w.ConsensusProof != nil {
		if p.ConsensusProof, err = consensusProofFromWire(*w.ConsensusProof); err != nil {
			return Package{}, err
		}
	}
	if w.Simulation != nil {
		if p.Simulation, err = simulationFromWire(*w.Simulation); err != nil {
			return Package{}, err
		}
	}
	if w.SimulationWitness != nil {
		if p.Witness, err = witnessFromWire(*w.SimulationWitness); err != nil {
			return Package{}, err
		}
	}
	p.WitnessGenerationError = w.WitnessGenerationError
	if w.ExportContract != nil {
		p.ExportContract = exportContractFromWire(*w.ExportContract)
	}

	return p, nil
}

// wireDTO is the inbound JSON shape an indexer-supplied transaction
// descriptor file carries, sharing the package wire format's conventions.
type wireDTO struct {
	SafeAddress   string             `json:"safeAddress"`
	SafeTxHash    string             `json:"safeTxHash"`
	ChainID       uint64             `json:"chainId"`
	Transaction   wireTransaction    `json:"transaction"`
	Confirmations []wireConfirmation `json:"confirmations"`
	SourceURL     string             `json:"sourceUrl"`
}

// UnmarshalIndexerDTO parses an indexer transaction descriptor from its
// wire-format JSON; errors carry the offending field path.
func UnmarshalIndexerDTO(data []byte) (IndexerDTO, error) {
	var w wireDTO
	if err := json.Unmarshal(data, &w); err != nil {
		return IndexerDTO{}, fmt.Errorf("evidence: parse dto json: %w", err)
	}

	var dto IndexerDTO
	var err error
	if dto.SafeAddress, err = parseAddr("safeAddress", w.SafeAddress); err != nil {
		return IndexerDTO{}, err
	}
	if dto.SafeTxHash, err = parseHash("safeTxHash", w.SafeTxHash); err != nil {
		return IndexerDTO{}, err
	}
	dto.ChainID = w.ChainID
	if dto.Transaction, err = transactionFromWire(w.Transaction); err != nil {
		return IndexerDTO{}, err
	}
	dto.Confirmations = make([]Confirmation, len(w.Confirmations))
	for i, c := range w.Confirmations {
		path := fmt.Sprintf("confirmations[%d]", i)
		owner, err := parseAddr(path+".owner", c.Owner)
		if err != nil {
			return IndexerDTO{}, err
		}
		sig, err := parseBytes(path+".signature", c.Signature)
		if err != nil {
			return IndexerDTO{}, err
		}
		at, err := parseTime(path+".submissionDate", c.SubmissionDate)
		if err != nil {
			return IndexerDTO{}, err
		}
		dto.Confirmations[i] = Confirmation{Owner: owner, Signature: sig, SubmissionDate: at}
	}
	dto.SourceURL = w.SourceURL
	return dto, nil
}

func transactionFromWire(w wireTransaction) (hashing.Transaction, error) {
	var tx hashing.Transaction
	var err error
	if tx.To, err = parseAddr("transaction.to", w.To); err != nil {
		return tx, err
	}
	if tx.Value, err = parseQuantity("transaction.value", w.Value); err != nil {
		return tx, err
	}
	if tx.Data, err = parseBytes("transaction.data", w.Data); err != nil {
		return tx, err
	}
	if w.Operation > 1 {
		return tx, fieldError("transaction.operation", fmt.Sprintf("%d", w.Operation), "0 (Call) or 1 (DelegateCall)")
	}
	tx.Operation = hashing.Operation(w.Operation)
	if tx.SafeTxGas, err = parseQuantity("transaction.safeTxGas", w.SafeTxGas); err != nil {
		return tx, err
	}
	if tx.BaseGas, err = parseQuantity("transaction.baseGas", w.BaseGas); err != nil {
		return tx, err
	}
	if tx.GasPrice, err = parseQuantity("transaction.gasPrice", w.GasPrice); err != nil {
		return tx, err
	}
	if tx.GasToken, err = parseAddr("transaction.gasToken", w.GasToken); err != nil {
		return tx, err
	}
	if tx.RefundReceiver, err = parseAddr("transaction.refundReceiver", w.RefundReceiver); err != nil {
		return tx, err
	}
	if tx.Nonce, err = parseQuantity("transaction.nonce", w.Nonce); err != nil {
		return tx, err
	}
	return tx, nil
}

func accountProofFromWire(path string, w wireAccountProof) (rpc.AccountProof, error) {
	var ap rpc.AccountProof
	var err error
	if ap.Address, err = parseAddr(path+".address", w.Address); err != nil {
		return ap, err
	}
	if ap.Balance, err = parseQuantity(path+".balance", w.Balance); err != nil {
		return ap, err
	}
	if ap.CodeHash, err = parseHash(path+".codeHash", w.CodeHash); err != nil {
		return ap, err
	}
	ap.Nonce = w.Nonce
	if ap.StorageHash, err = parseHash(path+".storageHash", w.StorageHash); err != nil {
		return ap, err
	}
	ap.AccountProof = make([][]byte, len(w.AccountProof))
	for i, n := range w.AccountProof {
		if ap.AccountProof[i], err = parseBytes(fmt.Sprintf("%s.accountProof[%d]", path, i), n); err != nil {
			return ap, err
		}
	}
	ap.StorageProof = make([]rpc.StorageProofEntry, len(w.StorageProof))
	for i, sp := range w.StorageProof {
		entryPath := fmt.Sprintf("%s.storageProof[%d]", path, i)
		key, err := parseHash(entryPath+".key", sp.Key)
		if err != nil {
			return ap, err
		}
		value, err := parseBytes(entryPath+".value", sp.Value)
		if err != nil {
			return ap, err
		}
		if len(value) != 32 {
			return ap, fieldError(entryPath+".value", sp.Value, "exactly 32 hex bytes")
		}
		entry := rpc.StorageProofEntry{Key: key}
		copy(entry.Value[:], value)
		entry.Proof = make([][]byte, len(sp.Proof))
		for j, n := range sp.Proof {
			if entry.Proof[j], err = parseBytes(fmt.Sprintf("%s.proof[%d]", entryPath, j), n); err != nil {
				return ap, err
			}
		}
		ap.StorageProof[i] = entry
	}
	return ap, nil
}

func policyProofFromWire(w wirePolicyProof) (*policyproof.OnchainPolicyProof, error) {
	out := &policyproof.OnchainPolicyProof{BlockNumber: w.BlockNumber}
	var err error
	if out.StateRoot, err = parseHash("onchainPolicyProof.stateRoot", w.StateRoot); err != nil {
		return nil, err
	}
	if out.AccountProof, err = accountProofFromWire("onchainPolicyProof.accountProof", w.AccountProof); err != nil {
		return nil, err
	}

	dp := &out.DecodedPolicy
	dp.Threshold = w.DecodedPolicy.Threshold
	dp.Nonce = w.DecodedPolicy.Nonce
	dp.Owners = make([]common.Address, len(w.DecodedPolicy.Owners))
	for i, o := range w.DecodedPolicy.Owners {
		if dp.Owners[i], err = parseAddr(fmt.Sprintf("onchainPolicyProof.decodedPolicy.owners[%d]", i), o); err != nil {
			return nil, err
		}
	}
	dp.Modules = make([]common.Address, len(w.DecodedPolicy.Modules))
	for i, m := range w.DecodedPolicy.Modules {
		if dp.Modules[i], err = parseAddr(fmt.Sprintf("onchainPolicyProof.decodedPolicy.modules[%d]", i), m); err != nil {
			return nil, err
		}
	}
	if dp.Guard, err = parseAddr("onchainPolicyProof.decodedPolicy.guard", w.DecodedPolicy.Guard); err != nil {
		return nil, err
	}
	if dp.FallbackHandler, err = parseAddr("onchainPolicyProof.decodedPolicy.fallbackHandler", w.DecodedPolicy.FallbackHandler); err != nil {
		return nil, err
	}
	if dp.Singleton, err = parseAddr("onchainPolicyProof.decodedPolicy.singleton", w.DecodedPolicy.Singleton); err != nil {
		return nil, err
	}
	if w.Trust != nil {
		out.Trust = &policyproof.Trust{Verdict: w.Trust.Verdict, Reason: w.Trust.Reason}
	}
	return out, nil
}

func consensusProofFromWire(w wireConsensusProof) (*ConsensusProof, error) {
	switch ConsensusMode(w.Mode) {
	case ConsensusBeacon, ConsensusOPStack, ConsensusLinea:
	default:
		return nil, fieldError("consensusProof.mode", w.Mode, `one of "beacon", "opstack", "linea"`)
	}
	out := &ConsensusProof{
		Mode:                     ConsensusMode(w.Mode),
		BlockNumber:              w.BlockNumber,
		VerifiedStateRootMatches: w.VerifiedStateRootMatches,
		VerifiedBlockNumber:      w.VerifiedBlockNumber,
	}
	var err error
	if out.StateRoot, err = parseHash("consensusProof.stateRoot", w.StateRoot); err != nil {
		return nil, err
	}
	if len(w.Payload) > 0 {
		if err := json.Unmarshal(w.Payload, &out.Payload); err != nil {
			return nil, fieldError("consensusProof.payload", string(w.Payload), "a JSON object")
		}
	}
	return out, nil
}

func simulationFromWire(w wireSimulation) (*simulation.Simulation, error) {
	out := &simulation.Simulation{
		Success:        w.Success,
		GasUsed:        w.GasUsed,
		BlockNumber:    w.BlockNumber,
		BlockTimestamp: w.BlockTimestamp,
		TraceAvailable: w.TraceAvailable,
	}
	var err error
	if w.ReturnData != nil {
		if out.ReturnData, err = parseBytes("simulation.returnData", *w.ReturnData); err != nil {
			return nil, err
		}
	}
	if w.RevertData != nil {
		if out.RevertData, err = parseBytes("simulation.revertData", *w.RevertData); err != nil {
			return nil, err
		}
	}
	out.Logs = make([]simulation.Log, len(w.Logs))
	for i, l := range w.Logs {
		path := fmt.Sprintf("simulation.logs[%d]", i)
		addr, err := parseAddr(path+".address", l.Address)
		if err != nil {
			return nil, err
		}
		topics := make([]common.Hash, len(l.Topics))
		for j, t := range l.Topics {
			if topics[j], err = parseHash(fmt.Sprintf("%s.topics[%d]", path, j), t); err != nil {
				return nil, err
			}
		}
		data, err := parseBytes(path+".data", l.Data)
		if err != nil {
			return nil, err
		}
		out.Logs[i] = simulation.Log{Address: addr, Topics: topics, Data: data}
	}
	if len(w.NativeTransfers) > 0 {
		out.NativeTransfers = make([]simulation.NativeTransfer, len(w.NativeTransfers))
		for i, nt := range w.NativeTransfers {
			path := fmt.Sprintf("simulation.nativeTransfers[%d]", i)
			from, err := parseAddr(path+".from", nt.From)
			if err != nil {
				return nil, err
			}
			to, err := parseAddr(path+".to", nt.To)
			if err != nil {
				return nil, err
			}
			value, err := parseQuantity(path+".value", nt.Value)
			if err != nil {
				return nil, err
			}
			out.NativeTransfers[i] = simulation.NativeTransfer{From: from, To: to, Value: value}
		}
	}
	if len(w.StateDiffs) > 0 {
		out.StateDiffs = make([]simulation.StateDiffEntry, len(w.StateDiffs))
		for i, d := range w.StateDiffs {
			path := fmt.Sprintf("simulation.stateDiffs[%d]", i)
			addr, err := parseAddr(path+".address", d.Address)
			if err != nil {
				return nil, err
			}
			key, err := parseHash(path+".key", d.Key)
			if err != nil {
				return nil, err
			}
			before, err := parseHash(path+".before", d.Before)
			if err != nil {
				return nil, err
			}
			after, err := parseHash(path+".after", d.After)
			if err != nil {
				return nil, err
			}
			out.StateDiffs[i] = simulation.StateDiffEntry{Address: addr, Key: key, Before: before, After: after}
		}
	}
	if w.Trust != nil {
		out.Trust = &simulation.Trust{Verdict: w.Trust.Verdict, Reason: w.Trust.Reason}
	}
	return out, nil
}

func witnessFromWire(w wireWitness) (*witness.SimulationWitness, error) {
	out := &witness.SimulationWitness{
		ChainID:        new(big.Int).SetUint64(w.ChainID),
		BlockNumber:    w.BlockNumber,
		ReplayGasLimit: w.ReplayGasLimit,
		WitnessOnly:    w.WitnessOnly,
	}
	var err error
	if out.SafeAddress, err = parseAddr("simulationWitness.safeAddress", w.SafeAddress); err != nil {
		return nil, err
	}
	if out.StateRoot, err = parseHash("simulationWitness.stateRoot", w.StateRoot); err != nil {
		return nil, err
	}
	if out.SafeAccountProof, err = accountProofFromWire("simulationWitness.safeAccountProof", w.SafeAccountProof); err != nil {
		return nil, err
	}
	out.OverriddenSlots = make([]witness.SlotValue, len(w.OverriddenSlots))
	for i, sv := range w.OverriddenSlots {
		path := fmt.Sprintf("simulationWitness.overriddenSlots[%d]", i)
		key, err := parseHash(path+".key", sv.Key)
		if err != nil {
			return nil, err
		}
		value, err := parseHash(path+".value", sv.Value)
		if err != nil {
			return nil, err
		}
		out.OverriddenSlots[i] = witness.SlotValue{Key: key, Value: value}
	}
	if out.SimulationDigest, err = parseHash("simulationWitness.simulationDigest", w.SimulationDigest); err != nil {
		return nil, err
	}
	if w.ReplayBlock != nil {
		rb := &witness.ReplayBlock{
			Timestamp: w.ReplayBlock.Timestamp,
			GasLimit:  w.ReplayBlock.GasLimit,
		}
		if rb.BaseFeePerGas, err = parseQuantity("simulationWitness.replayBlock.baseFeePerGas", w.ReplayBlock.BaseFeePerGas); err != nil {
			return nil, err
		}
		if rb.Beneficiary, err = parseAddr("simulationWitness.replayBlock.beneficiary", w.ReplayBlock.Beneficiary); err != nil {
			return nil, err
		}
		if rb.PrevRandao, err = parseHash("simulationWitness.replayBlock.prevRandao", w.ReplayBlock.PrevRandao); err != nil {
			return nil, err
		}
		out.ReplayBlock = rb
	}
	if len(w.ReplayAccounts) > 0 {
		out.ReplayAccounts = make(map[common.Address]witness.ReplayAccount, len(w.ReplayAccounts))
		for i, ra := range w.ReplayAccounts {
			path := fmt.Sprintf("simulationWitness.replayAccounts[%d]", i)
			addr, err := parseAddr(path+".address", ra.Address)
			if err != nil {
				return nil, err
			}
			balance, err := parseQuantity(path+".balance", ra.Balance)
			if err != nil {
				return nil, err
			}
			code, err := parseBytes(path+".code", ra.Code)
			if err != nil {
				return nil, err
			}
			acct := witness.ReplayAccount{Balance: balance, Nonce: ra.Nonce, Code: code}
			if len(ra.Storage) > 0 {
				acct.Storage = make(map[common.Hash]common.Hash, len(ra.Storage))
				for j, sv := range ra.Storage {
					slotPath := fmt.Sprintf("%s.storage[%d]", path, j)
					key, err := parseHash(slotPath+".key", sv.Key)
					if err != nil {
						return nil, err
					}
					value, err := parseHash(slotPath+".value", sv.Value)
					if err != nil {
						return nil, err
					}
					acct.Storage[key] = value
				}
			}
			out.ReplayAccounts[addr] = acct
		}
	}
	if w.ReplayCaller != "" {
		caller, err := parseAddr("simulationWitness.replayCaller", w.ReplayCaller)
		if err != nil {
			return nil, err
		}
		out.ReplayCaller = &caller
	}
	return out, nil
}

func exportContractFromWire(w wireExportContract) *ExportContract {
	out := &ExportContract{
		Mode:              ExportMode(w.Mode),
		Status:            ExportStatus(w.Status),
		IsFullyVerifiable: w.IsFullyVerifiable,
		Artifacts: ArtifactPresence{
			ConsensusProof:     w.Artifacts.ConsensusProof,
			OnchainPolicyProof: w.Artifacts.OnchainPolicyProof,
			Simulation:         w.Artifacts.Simulation,
		},
		Diagnostics: w.Diagnostics,
	}
	out.Reasons = make([]ExportReason, len(w.Reasons))
	for i, r := range w.Reasons {
		out.Reasons[i] = ExportReason(r)
	}
	return out
}
