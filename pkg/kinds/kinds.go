package kinds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/playground/pkg/adapters/rpc"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Kind names of the built-in templates.
const (
	Constant        = "constant"
	PublicKey       = "public_key"
	GetBalance      = "get_balance"
	GetAccountInfo  = "get_account_info"
	GetCandyMachine = "get_candy_machine"
	GetSignatures   = "get_signatures"
	Pick            = "pick"
	FormatJSON      = "format_json"
)

// DefaultSignatureLimit bounds get_signatures when params.limit is absent.
const DefaultSignatureLimit = 10

// Chain is the subset of a Solana RPC client the query kinds need.
type Chain interface {
	GetBalance(ctx context.Context, address string) (*rpc.Balance, error)
	GetAccountInfo(ctx context.Context, address string) (*rpc.AccountInfo, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]rpc.SignatureInfo, error)
}

// NewRegistry returns a registry holding every built-in kind.
func NewRegistry(chain Chain) *registry.Registry {
	reg := registry.NewRegistry()
	for _, t := range Templates(chain) {
		reg.MustRegister(t)
	}
	return reg
}

// Templates returns the built-in kinds bound to chain.
func Templates(chain Chain) []registry.Template {
	address := []registry.Slot{{Name: "address", Type: schema.Address()}}

	return []registry.Template{
		{
			Kind:    Constant,
			Title:   "Constant",
			Params:  schema.Schema{"value": schema.Any()},
			Execute: func(_ context.Context, c registry.Call) (any, error) { return c.Params["value"], nil },
		},
		{
			Kind:    PublicKey,
			Title:   "Public Key",
			Code:    "new PublicKey(address)",
			Params:  schema.Schema{"address": schema.Address()},
			Execute: func(_ context.Context, c registry.Call) (any, error) { return c.Params["address"], nil },
		},
		{
			Kind:   GetBalance,
			Title:  "Account - Get Balance",
			Code:   "connection.getBalance(new PublicKey(address))",
			Inputs: address,
			Execute: func(ctx context.Context, c registry.Call) (any, error) {
				bal, err := chain.GetBalance(ctx, c.Inputs["address"].(string))
				if err != nil {
					return nil, err
				}
				return toValue(bal)
			},
		},
		{
			Kind:   GetAccountInfo,
			Title:  "Account - Get Info",
			Code:   "connection.getAccountInfo(new PublicKey(address))",
			Inputs: address,
			Execute: func(ctx context.Context, c registry.Call) (any, error) {
				info, err := chain.GetAccountInfo(ctx, c.Inputs["address"].(string))
				if err != nil {
					return nil, err
				}
				return toValue(info)
			},
		},
		{
			Kind:   GetCandyMachine,
			Title:  "Candy Machine - Get",
			Code:   "fetchCandyMachine(umi, publicKey(address)).then((res) => console.log(res))",
			Inputs: address,
			Execute: func(ctx context.Context, c registry.Call) (any, error) {
				info, err := chain.GetAccountInfo(ctx, c.Inputs["address"].(string))
				if err != nil {
					return nil, err
				}
				cm, err := DecodeCandyMachine(c.Inputs["address"].(string), info.Data)
				if err != nil {
					return nil, err
				}
				return toValue(cm)
			},
		},
		{
			Kind:   GetSignatures,
			Title:  "Account - Get Signatures",
			Code:   "connection.getSignaturesForAddress(new PublicKey(address), { limit })",
			Inputs: address,
			Execute: func(ctx context.Context, c registry.Call) (any, error) {
				limit, err := intParam(c.Params, "limit", DefaultSignatureLimit)
				if err != nil {
					return nil, err
				}
				sigs, err := chain.GetSignaturesForAddress(ctx, c.Inputs["address"].(string), limit)
				if err != nil {
					return nil, err
				}
				return toValue(sigs)
			},
		},
		{
			Kind:   Pick,
			Title:  "Pick Field",
			Code:   "value[path]",
			Inputs: []registry.Slot{{Name: "value", Type: schema.Any()}},
			Params: schema.Schema{"path": schema.String()},
			Execute: func(_ context.Context, c registry.Call) (any, error) {
				return pick(c.Inputs["value"], c.Params["path"].(string))
			},
		},
		{
			Kind:   FormatJSON,
			Title:  "Format JSON",
			Code:   "JSON.stringify(value, null, 2)",
			Inputs: []registry.Slot{{Name: "value", Type: schema.Any()}},
			Execute: func(_ context.Context, c registry.Call) (any, error) {
				return stringify(c.Inputs["value"])
			},
		},
	}
}

// toValue converts a result into plain JSON values, so it can be copied and persisted.
func toValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringify(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pick walks a dot separated path through maps and slices.
func pick(v any, path string) (any, error) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found", part)
			}
			cur = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range", part)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot select %q from %T", part, cur)
		}
	}
	return cur, nil
}

func intParam(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	if err := schema.Int().Validate(v); err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	var n int
	if err := mapstructure.WeakDecode(v, &n); err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return n, nil
}
