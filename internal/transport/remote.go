package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/mvault/internal/logger"
)

var transportLogger = logger.GetForComponent("transport_client")

// Error definitions for the remote client
var (
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
)

// rpcRequest defines the structure of a JSON-RPC request.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// rpcResponse defines the structure of a JSON-RPC response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError defines the structure of a JSON-RPC error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type moveParams struct {
	Amount  string `json:"amount"`
	Denom   string `json:"denom"`
	From    string `json:"from"`
	To      string `json:"to"`
	Spender string `json:"spender,omitempty"`
}

type approveParams struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Unlimited bool   `json:"unlimited"`
}

type moveResult struct {
	Accepted bool   `json:"accepted"`
	TxHash   string `json:"tx_hash,omitempty"`
}

// RemoteTransport is a JSON-RPC-over-HTTP client for the host ledger's asset
// mover. Every response is validated before use; a transfer that the ledger
// does not explicitly accept is treated as failed.
type RemoteTransport struct {
	endpoint  string
	denom     string
	vaultAddr string
	client    *http.Client
}

// NewRemoteTransport creates a remote transport client with comprehensive validation.
func NewRemoteTransport(endpoint, denom, vaultAddr string) (*RemoteTransport, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty transport endpoint", ErrTransferFailed)
	}
	if denom == "" {
		return nil, fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	if vaultAddr == "" {
		return nil, ErrInvalidAccount
	}

	client := &RemoteTransport{
		endpoint:  endpoint,
		denom:     denom,
		vaultAddr: vaultAddr,
		client:    &http.Client{Timeout: 15 * time.Second},
	}

	transportLogger.Info().
		Str("endpoint", endpoint).
		Str("vaultAddress", vaultAddr).
		Msg("RemoteTransport client initialized")

	return client, nil
}

func (r *RemoteTransport) Transfer(ctx context.Context, receiver string, assets sdk.Coin) error {
	if receiver == "" {
		return ErrInvalidAccount
	}
	if err := r.validateCoin(assets); err != nil {
		return err
	}

	var result moveResult
	err := r.call(ctx, "transport_transfer", moveParams{
		Amount: assets.Amount.String(),
		Denom:  assets.Denom,
		From:   r.vaultAddr,
		To:     receiver,
	}, &result)
	if err != nil {
		return errors.Join(ErrTransferFailed, err)
	}
	if !result.Accepted {
		return fmt.Errorf("%w: ledger rejected transfer to %s", ErrTransferFailed, receiver)
	}

	transportLogger.Debug().
		Str("receiver", receiver).
		Str("amount", assets.String()).
		Str("txHash", result.TxHash).
		Msg("Transfer accepted")
	return nil
}

func (r *RemoteTransport) TransferFrom(ctx context.Context, owner string, assets sdk.Coin) error {
	if owner == "" {
		return ErrInvalidAccount
	}
	if err := r.validateCoin(assets); err != nil {
		return err
	}

	var result moveResult
	err := r.call(ctx, "transport_transferFrom", moveParams{
		Amount:  assets.Amount.String(),
		Denom:   assets.Denom,
		From:    owner,
		To:      r.vaultAddr,
		Spender: r.vaultAddr,
	}, &result)
	if err != nil {
		return errors.Join(ErrTransferFailed, err)
	}
	if !result.Accepted {
		return fmt.Errorf("%w: ledger rejected transfer from %s", ErrTransferFailed, owner)
	}

	transportLogger.Debug().
		Str("owner", owner).
		Str("amount", assets.String()).
		Str("txHash", result.TxHash).
		Msg("TransferFrom accepted")
	return nil
}

func (r *RemoteTransport) Approve(ctx context.Context, spender string, unlimited bool) error {
	if spender == "" {
		return ErrInvalidAccount
	}

	var result moveResult
	err := r.call(ctx, "transport_approve", approveParams{
		Owner:     r.vaultAddr,
		Spender:   spender,
		Unlimited: unlimited,
	}, &result)
	if err != nil {
		return errors.Join(ErrTransferFailed, err)
	}
	if !result.Accepted {
		return fmt.Errorf("%w: ledger rejected approval for %s", ErrTransferFailed, spender)
	}

	transportLogger.Info().
		Str("spender", spender).
		Bool("unlimited", unlimited).
		Msg("Approval accepted")
	return nil
}

func (r *RemoteTransport) validateCoin(assets sdk.Coin) error {
	if assets.Denom != r.denom {
		return fmt.Errorf("%w: transport handles %s, got %s", ErrInvalidAmount, r.denom, assets.Denom)
	}
	if assets.Amount.IsNil() || assets.Amount.IsNegative() {
		return fmt.Errorf("%w: bad amount", ErrInvalidAmount)
	}
	return nil
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (r *RemoteTransport) call(ctx context.Context, method string, params, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: transport returned HTTP %d", ErrRPCRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: malformed JSON-RPC response: %w", ErrInvalidResponse, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: code %d: %s", ErrRPCRequestFailed, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("%w: empty result", ErrInvalidResponse)
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: failed to decode result: %w", ErrInvalidResponse, err)
	}
	return nil
}
