package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/playground/internal/logging"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = solana.LAMPORTS_PER_SOL

// Error is a JSON-RPC error object returned by the node.
type Error = jsonrpc.RPCError

// ErrAccountNotFound is returned when an account holds no data on chain.
var ErrAccountNotFound = errors.New("account not found")

// Client adapts the solana-go RPC client to the values the node kinds publish.
type Client struct {
	endpoint   string
	httpClient *http.Client
	commitment solanarpc.CommitmentType
	logger     *slog.Logger
	rpc        *solanarpc.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCommitment sets the commitment level sent with every query.
func WithCommitment(level string) Option {
	return func(c *Client) {
		c.commitment = solanarpc.CommitmentType(level)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		commitment: solanarpc.CommitmentConfirmed,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rpc = solanarpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: c.httpClient,
	}))
	return c
}

// Endpoint returns the URL the client talks to.
func (c *Client) Endpoint() string { return c.endpoint }

// observe logs a finished call and normalizes its error.
func (c *Client) observe(ctx context.Context, method string, start time.Time, err error) error {
	c.logger.Debug("rpc call", "method", method, "duration", time.Since(start), "err", err)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", method, ctxErr)
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%s: http %d: %w", method, httpErr.Code, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}

func publicKey(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return pk, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return pk, nil
}

// Balance is the lamport balance of an account.
type Balance struct {
	Address  string  `json:"address"`
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
	Slot     uint64  `json:"slot"`
}

// GetBalance returns the balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	pk, err := publicKey(address)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.rpc.GetBalance(ctx, pk, c.commitment)
	if err := c.observe(ctx, "getBalance", start, err); err != nil {
		return nil, err
	}
	return &Balance{
		Address:  address,
		Lamports: res.Value,
		SOL:      float64(res.Value) / float64(LamportsPerSOL),
		Slot:     res.Context.Slot,
	}, nil
}

// AccountInfo is the decoded state of an account.
type AccountInfo struct {
	Address    string `json:"address"`
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rent_epoch"`
	Space      int    `json:"space"`
	Data       []byte `json:"data"`
}

// GetAccountInfo fetches an account with base64-encoded data.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	pk, err := publicKey(address)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, pk, &solanarpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if errors.Is(err, solanarpc.ErrNotFound) || (err == nil && res.Value == nil) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if err := c.observe(ctx, "getAccountInfo", start, err); err != nil {
		return nil, err
	}

	acc := res.Value
	info := &AccountInfo{
		Address:    address,
		Lamports:   acc.Lamports,
		Owner:      acc.Owner.String(),
		Executable: acc.Executable,
	}
	if acc.RentEpoch != nil && acc.RentEpoch.IsUint64() {
		info.RentEpoch = acc.RentEpoch.Uint64()
	}
	if acc.Data != nil {
		info.Data = acc.Data.GetBinary()
		info.Space = len(info.Data)
	}
	return info, nil
}

// SignatureInfo is one entry of an address's transaction history.
type SignatureInfo struct {
	Signature          string  `json:"signature"`
	Slot               uint64  `json:"slot"`
	BlockTime          *int64  `json:"blockTime,omitempty"`
	Err                any     `json:"err,omitempty"`
	Memo               *string `json:"memo,omitempty"`
	ConfirmationStatus string  `json:"confirmationStatus,omitempty"`
}

// GetSignaturesForAddress returns the latest signatures involving address, newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	pk, err := publicKey(address)
	if err != nil {
		return nil, err
	}

	opts := &solanarpc.GetSignaturesForAddressOpts{Commitment: c.commitment}
	if limit > 0 {
		opts.Limit = &limit
	}

	start := time.Now()
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pk, opts)
	if err := c.observe(ctx, "getSignaturesForAddress", start, err); err != nil {
		return nil, err
	}

	out := make([]SignatureInfo, 0, len(sigs))
	for _, s := range sigs {
		info := SignatureInfo{
			Signature:          s.Signature.String(),
			Slot:               s.Slot,
			Err:                s.Err,
			Memo:               s.Memo,
			ConfirmationStatus: string(s.ConfirmationStatus),
		}
		if s.BlockTime != nil {
			bt := int64(*s.BlockTime)
			info.BlockTime = &bt
		}
		out = append(out, info)
	}
	return out, nil
}
