/*

This file contains the read-only client for the quoting router, a separate
pricing collaborator used by the liquidation path. The vault core never
depends on it; its only contract is "given an amount and a conversion path,
return amountsIn/amountsOut". It is surfaced through the web API for
operators.

*/

package router

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

	"github.com/elys-network/mvault/internal/logger"
)

var routerLogger = logger.GetForComponent("quote_router")

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidEndpoint = errors.New("router endpoint is invalid")
	ErrInvalidPath     = errors.New("conversion path is invalid")
	ErrInvalidAmount   = errors.New("amount is invalid")
	ErrRequestFailed   = errors.New("router request failed")
	ErrInvalidResponse = errors.New("router response is invalid")
)

// Quote is the router's answer for one conversion request: the amounts
// entering and leaving each hop of the path.
type Quote struct {
	AmountsIn  []sdkmath.Int `json:"amounts_in"`
	AmountsOut []sdkmath.Int `json:"amounts_out"`
}

// QuoteRouter answers pricing questions over a conversion path.
type QuoteRouter interface {
	// QuoteIn returns the input amounts required to receive amountOut over
	// the path.
	QuoteIn(ctx context.Context, amountOut sdkmath.Int, path []string) (Quote, error)

	// QuoteOut returns the output amounts received for amountIn over the
	// path.
	QuoteOut(ctx context.Context, amountIn sdkmath.Int, path []string) (Quote, error)
}

type quoteRequest struct {
	AmountIn  string   `json:"amount_in,omitempty"`
	AmountOut string   `json:"amount_out,omitempty"`
	Path      []string `json:"path"`
}

type quoteResponse struct {
	AmountsIn  []string `json:"amounts_in"`
	AmountsOut []string `json:"amounts_out"`
	Error      string   `json:"error,omitempty"`
}

// HTTPRouter is a JSON-over-HTTP QuoteRouter client.
type HTTPRouter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRouter creates a router client for the given endpoint.
func NewHTTPRouter(endpoint string) (*HTTPRouter, error) {
	if endpoint == "" {
		return nil, ErrInvalidEndpoint
	}
	return &HTTPRouter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (h *HTTPRouter) QuoteIn(ctx context.Context, amountOut sdkmath.Int, path []string) (Quote, error) {
	if err := validateQuoteArgs(amountOut, path); err != nil {
		return Quote{}, err
	}
	return h.quote(ctx, quoteRequest{AmountOut: amountOut.String(), Path: path})
}

func (h *HTTPRouter) QuoteOut(ctx context.Context, amountIn sdkmath.Int, path []string) (Quote, error) {
	if err := validateQuoteArgs(amountIn, path); err != nil {
		return Quote{}, err
	}
	return h.quote(ctx, quoteRequest{AmountIn: amountIn.String(), Path: path})
}

func (h *HTTPRouter) quote(ctx context.Context, req quoteRequest) (Quote, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/quote", bytes.NewReader(body))
	if err != nil {
		return Quote{}, fmt.Errorf("failed to build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Quote{}, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("%w: router returned HTTP %d", ErrRequestFailed, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to read quote response: %w", err)
	}

	var decoded quoteResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return Quote{}, fmt.Errorf("%w: malformed quote response: %w", ErrInvalidResponse, err)
	}
	if decoded.Error != "" {
		return Quote{}, fmt.Errorf("%w: %s", ErrRequestFailed, decoded.Error)
	}

	quote := Quote{}
	quote.AmountsIn, err = parseAmounts(decoded.AmountsIn)
	if err != nil {
		return Quote{}, err
	}
	quote.AmountsOut, err = parseAmounts(decoded.AmountsOut)
	if err != nil {
		return Quote{}, err
	}

	routerLogger.Debug().
		Int("hops", len(req.Path)).
		Msg("Quote received")
	return quote, nil
}

func parseAmounts(raw []string) ([]sdkmath.Int, error) {
	amounts := make([]sdkmath.Int, 0, len(raw))
	for _, s := range raw {
		amount, ok := sdkmath.NewIntFromString(s)
		if !ok {
			return nil, fmt.Errorf("%w: unparseable amount %q", ErrInvalidResponse, s)
		}
		amounts = append(amounts, amount)
	}
	return amounts, nil
}

func validateQuoteArgs(amount sdkmath.Int, path []string) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(path) < 2 {
		return fmt.Errorf("%w: need at least two denoms", ErrInvalidPath)
	}
	for _, denom := range path {
		if denom == "" {
			return fmt.Errorf("%w: empty denom in path", ErrInvalidPath)
		}
	}
	return nil
}
