package kinds

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrShortAccount is returned when account data ends before the candy machine layout does.
var ErrShortAccount = errors.New("account data too short for a candy machine")

// Creator is a royalty recipient of a candy machine collection.
type Creator struct {
	Address         string `json:"address"`
	Verified        bool   `json:"verified"`
	PercentageShare uint8  `json:"percentageShare"`
}

// CandyMachine is the decoded state of a Metaplex candy machine (v3 core account).
type CandyMachine struct {
	PublicKey            string    `json:"publicKey"`
	Discriminator        string    `json:"discriminator"`
	Version              uint8     `json:"version"`
	TokenStandard        uint8     `json:"tokenStandard"`
	Authority            string    `json:"authority"`
	MintAuthority        string    `json:"mintAuthority"`
	CollectionMint       string    `json:"collectionMint"`
	ItemsRedeemed        uint64    `json:"itemsRedeemed"`
	ItemsAvailable       uint64    `json:"itemsAvailable"`
	Symbol               string    `json:"symbol"`
	SellerFeeBasisPoints uint16    `json:"sellerFeeBasisPoints"`
	MaxSupply            uint64    `json:"maxSupply"`
	IsMutable            bool      `json:"isMutable"`
	Creators             []Creator `json:"creators"`
}

// candyMachineAccount is the borsh layout of the account prefix.
type candyMachineAccount struct {
	Discriminator        [8]byte
	Version              uint8
	TokenStandard        uint8
	Features             [6]byte
	Authority            solana.PublicKey
	MintAuthority        solana.PublicKey
	CollectionMint       solana.PublicKey
	ItemsRedeemed        uint64
	ItemsAvailable       uint64
	Symbol               string
	SellerFeeBasisPoints uint16
	MaxSupply            uint64
	IsMutable            bool
	Creators             []creatorAccount
}

type creatorAccount struct {
	Address         solana.PublicKey
	Verified        bool
	PercentageShare uint8
}

// DecodeCandyMachine parses the fixed prefix of a candy machine account.
func DecodeCandyMachine(address string, data []byte) (*CandyMachine, error) {
	var acc candyMachineAccount
	if err := bin.NewBorshDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode candy machine %s: %w: %v", address, ErrShortAccount, err)
	}

	cm := &CandyMachine{
		PublicKey:            address,
		Discriminator:        base58.Encode(acc.Discriminator[:]),
		Version:              acc.Version,
		TokenStandard:        acc.TokenStandard,
		Authority:            acc.Authority.String(),
		MintAuthority:        acc.MintAuthority.String(),
		CollectionMint:       acc.CollectionMint.String(),
		ItemsRedeemed:        acc.ItemsRedeemed,
		ItemsAvailable:       acc.ItemsAvailable,
		Symbol:               acc.Symbol,
		SellerFeeBasisPoints: acc.SellerFeeBasisPoints,
		MaxSupply:            acc.MaxSupply,
		IsMutable:            acc.IsMutable,
	}
	for _, c := range acc.Creators {
		cm.Creators = append(cm.Creators, Creator{
			Address:         c.Address.String(),
			Verified:        c.Verified,
			PercentageShare: c.PercentageShare,
		})
	}
	return cm, nil
}
