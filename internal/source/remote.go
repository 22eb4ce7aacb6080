package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/mvault/internal/logger"
)

var sourceLogger = logger.GetForComponent("source_client")

// Error definitions for the remote client
var (
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
)

// JSON-RPC structures for source calls with validation

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

type balanceParams struct {
	Holder string `json:"holder"`
}

type balanceResult struct {
	Amount string `json:"amount"`
	Denom  string `json:"denom"`
}

type transferParams struct {
	Amount      string `json:"amount"`
	Denom       string `json:"denom"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Receiver    string `json:"receiver,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

type transferResult struct {
	Accepted bool   `json:"accepted"`
	TxHash   string `json:"tx_hash,omitempty"`
}

// RemoteSource is a JSON-RPC-over-HTTP client for an underlying source
// exposed by the host ledger. Every response is validated before use; any
// transport or application error fails the call outright.
type RemoteSource struct {
	id       string
	endpoint string
	denom    string
	client   *http.Client
}

// NewRemoteSource creates a remote source client with comprehensive validation.
func NewRemoteSource(id, endpoint, denom string) (*RemoteSource, error) {
	if id == "" {
		return nil, ErrInvalidSourceID
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: source %s has empty endpoint", ErrInvalidSourceID, id)
	}
	if denom == "" {
		return nil, fmt.Errorf("%w: source %s has empty denom", ErrInvalidAmount, id)
	}

	client := &RemoteSource{
		id:       id,
		endpoint: endpoint,
		denom:    denom,
		client:   &http.Client{Timeout: 15 * time.Second},
	}

	sourceLogger.Info().
		Str("sourceId", id).
		Str("endpoint", endpoint).
		Msg("RemoteSource client initialized")

	return client, nil
}

func (r *RemoteSource) ID() string { return r.id }

func (r *RemoteSource) Deposit(ctx context.Context, assets sdk.Coin, beneficiary string) error {
	if beneficiary == "" {
		return fmt.Errorf("%w: empty beneficiary", ErrInvalidHolder)
	}
	if err := r.validateCoin(assets); err != nil {
		return err
	}

	var result transferResult
	err := r.call(ctx, "source_deposit", transferParams{
		Amount:      assets.Amount.String(),
		Denom:       assets.Denom,
		Beneficiary: beneficiary,
	}, &result)
	if err != nil {
		return errors.Join(ErrDepositFailed, err)
	}
	if !result.Accepted {
		return fmt.Errorf("%w: source %s rejected deposit", ErrDepositFailed, r.id)
	}

	sourceLogger.Debug().
		Str("sourceId", r.id).
		Str("amount", assets.String()).
		Str("txHash", result.TxHash).
		Msg("Source deposit accepted")
	return nil
}

func (r *RemoteSource) Withdraw(ctx context.Context, assets sdk.Coin, receiver, owner string) error {
	if receiver == "" || owner == "" {
		return fmt.Errorf("%w: empty receiver or owner", ErrInvalidHolder)
	}
	if err := r.validateCoin(assets); err != nil {
		return err
	}

	var result transferResult
	err := r.call(ctx, "source_withdraw", transferParams{
		Amount:   assets.Amount.String(),
		Denom:    assets.Denom,
		Receiver: receiver,
		Owner:    owner,
	}, &result)
	if err != nil {
		return errors.Join(ErrWithdrawFailed, err)
	}
	if !result.Accepted {
		return fmt.Errorf("%w: source %s rejected withdrawal", ErrWithdrawFailed, r.id)
	}

	sourceLogger.Debug().
		Str("sourceId", r.id).
		Str("amount", assets.String()).
		Str("txHash", result.TxHash).
		Msg("Source withdrawal accepted")
	return nil
}

func (r *RemoteSource) AssetsOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	if holder == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: empty holder", ErrInvalidHolder)
	}

	var result balanceResult
	if err := r.call(ctx, "source_assetsOf", balanceParams{Holder: holder}, &result); err != nil {
		return sdkmath.Int{}, errors.Join(ErrQueryFailed, err)
	}

	if result.Denom != r.denom {
		return sdkmath.Int{}, fmt.Errorf("%w: source %s reported denom %s, expected %s",
			ErrInvalidResponse, r.id, result.Denom, r.denom)
	}

	amount, ok := sdkmath.NewIntFromString(result.Amount)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: source %s reported unparseable amount %q",
			ErrInvalidResponse, r.id, result.Amount)
	}
	if amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: source %s reported negative balance %s",
			ErrInvalidResponse, r.id, amount)
	}

	return amount, nil
}

func (r *RemoteSource) validateCoin(assets sdk.Coin) error {
	if assets.Denom != r.denom {
		return fmt.Errorf("%w: source %s handles %s, got %s", ErrInvalidAmount, r.id, r.denom, assets.Denom)
	}
	if assets.Amount.IsNil() || assets.Amount.IsNegative() {
		return fmt.Errorf("%w: source %s: bad amount", ErrInvalidAmount, r.id)
	}
	return nil
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (r *RemoteSource) call(ctx context.Context, method string, params, out interface{}) error {
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
		return fmt.Errorf("%w: source %s returned HTTP %d", ErrRPCRequestFailed, r.id, resp.StatusCode)
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
