// Package tips verifies ERC-20 tips paid to lore authors by reading transaction
// receipts from an Ethereum JSON-RPC provider.
package tips

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/bytedance/sonic"

	"github.com/lorecast/lorecast/internal/content"
)

// transferTopic is keccak256("Transfer(address,address,uint256)")
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

var (
	// ErrNotVerified is returned when a transaction is not a successful tip to the recipient
	ErrNotVerified = errors.New("tip not verified")

	txHashRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config points the verifier at a provider and a token contract
type Config struct {
	RPCURL        string
	TokenContract string
}

// Verifier checks tip transactions
type Verifier struct {
	rpcURL string
	token  string
	client HTTPClient
	nextID atomic.Int64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *receipt  `json:"result"`
	Error  *rpcError `json:"error"`
}

type receipt struct {
	TransactionHash string   `json:"transactionHash"`
	Status          string   `json:"status"`
	Logs            []logRec `json:"logs"`
}

type logRec struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// NewVerifier creates a verifier, a nil client gets a default with timeout
func NewVerifier(cfg Config, client HTTPClient) (*Verifier, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, errors.New("rpc url is required")
	}
	token := strings.ToLower(strings.TrimSpace(cfg.TokenContract))
	if !addressRe.MatchString(token) {
		return nil, fmt.Errorf("invalid token contract address %q", cfg.TokenContract)
	}
	if client == nil {
		client = &http.Client{Timeout: content.DefaultHTTPTimeout}
	}
	return &Verifier{rpcURL: strings.TrimSpace(cfg.RPCURL), token: token, client: client}, nil
}

// Verify returns the token amount transferred to recipient by a successful transaction
func (v *Verifier) Verify(ctx context.Context, txHash, recipient string) (*big.Int, error) {
	if !txHashRe.MatchString(txHash) {
		return nil, fmt.Errorf("%w: malformed transaction hash", ErrNotVerified)
	}
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	if !addressRe.MatchString(recipient) {
		return nil, fmt.Errorf("%w: malformed recipient address", ErrNotVerified)
	}

	rec, err := v.receipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: transaction not found or pending", ErrNotVerified)
	}
	if rec.Status != "0x1" {
		return nil, fmt.Errorf("%w: transaction reverted", ErrNotVerified)
	}

	total := new(big.Int)
	matched := false
	for _, l := range rec.Logs {
		amount, ok := v.transferTo(l, recipient)
		if !ok {
			continue
		}
		total.Add(total, amount)
		matched = true
	}
	if !matched || total.Sign() == 0 {
		return nil, fmt.Errorf("%w: no token transfer to %s", ErrNotVerified, recipient)
	}
	return total, nil
}

// transferTo decodes an ERC-20 Transfer log of the configured token addressed to recipient
func (v *Verifier) transferTo(l logRec, recipient string) (*big.Int, bool) {
	if strings.ToLower(l.Address) != v.token || len(l.Topics) != 3 {
		return nil, false
	}
	if strings.ToLower(l.Topics[0]) != transferTopic {
		return nil, false
	}
	to := strings.ToLower(l.Topics[2])
	if len(to) != 66 || "0x"+to[26:] != recipient {
		return nil, false
	}
	amount, ok := new(big.Int).SetString(strings.TrimPrefix(l.Data, "0x"), 16)
	if !ok {
		return nil, false
	}
	return amount, true
}

func (v *Verifier) receipt(ctx context.Context, txHash string) (*receipt, error) {
	body, err := sonic.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      v.nextID.Add(1),
		Method:  "eth_getTransactionReceipt",
		Params:  []any{txHash},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out rpcResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return out.Result, nil
}
