package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/hasher"
)

var ErrReadOnly = errors.New("ledger: no signing key configured")

type ContractConfig struct {
	RPCURL     string
	Address    string
	PrivateKey string
}

// Contract is a Ledger backed by a deployed ResumeZK contract.
type Contract struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	log      logrus.FieldLogger
}

// DialContract connects to cfg.RPCURL. Without a private key the contract
// can only be read.
func DialContract(ctx context.Context, cfg ContractConfig, log logrus.FieldLogger) (*Contract, error) {
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, cfg.Address)
	}
	parsed, err := abi.JSON(strings.NewReader(resumeZKABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	c := &Contract{
		client:   client,
		contract: bind.NewBoundContract(common.HexToAddress(cfg.Address), parsed, client, client, client),
		chainID:  chainID,
		log:      log,
	}
	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.key = key
	}
	log.WithFields(logrus.Fields{"contract": cfg.Address, "chain_id": chainID.String()}).Info("ledger contract ready")
	return c, nil
}

func (c *Contract) Close() { c.client.Close() }

type onchainResume struct {
	MerkleRoot [32]byte
	Owner      common.Address
	Timestamp  *big.Int
	Verified   bool
}

type onchainCredential struct {
	CredType  uint8
	DataHash  string
	Timestamp *big.Int
	Verified  bool
}

func (c *Contract) transact(ctx context.Context, method string, args ...interface{}) (TxHash, error) {
	if c.key == nil {
		return "", ErrReadOnly
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", fmt.Errorf("ledger: transactor: %w", err)
	}
	opts.Context = ctx
	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("ledger: %s: %w", method, err)
	}
	c.log.WithFields(logrus.Fields{"method": method, "tx": tx.Hash().Hex()}).Info("ledger transaction sent")
	return TxHash(tx.Hash().Hex()), nil
}

func (c *Contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("ledger: %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ledger: %s: empty result", method)
	}
	return out, nil
}

func toBytes32(d hasher.Digest) ([32]byte, error) {
	var b [32]byte
	parsed, err := hasher.ParseDigest(string(d))
	if err != nil {
		return b, err
	}
	copy(b[:], parsed.Bytes())
	return b, nil
}

func toAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func fromUnix(ts *big.Int) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return time.Unix(ts.Int64(), 0).UTC()
}

func (c *Contract) SubmitResume(ctx context.Context, contentHash, merkleRoot hasher.Digest) (TxHash, error) {
	h, err := toBytes32(contentHash)
	if err != nil {
		return "", err
	}
	r, err := toBytes32(merkleRoot)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, "submitResume", h, r)
}

func (c *Contract) VerifyResume(ctx context.Context, contentHash hasher.Digest) (TxHash, error) {
	h, err := toBytes32(contentHash)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, "verifyResume", h)
}

func (c *Contract) GetResume(ctx context.Context, contentHash hasher.Digest) (Resume, error) {
	h, err := toBytes32(contentHash)
	if err != nil {
		return Resume{}, err
	}
	out, err := c.call(ctx, "getResume", h)
	if err != nil {
		return Resume{}, err
	}
	r := *abi.ConvertType(out[0], new(onchainResume)).(*onchainResume)
	if r.Owner == (common.Address{}) {
		return Resume{}, ErrResumeNotFound
	}
	root, err := hasher.FromBytes(r.MerkleRoot[:])
	if err != nil {
		return Resume{}, err
	}
	return Resume{
		MerkleRoot: root,
		Owner:      r.Owner.Hex(),
		Timestamp:  fromUnix(r.Timestamp),
		Verified:   r.Verified,
	}, nil
}

func (c *Contract) GetUserResumes(ctx context.Context, owner string) ([]hasher.Digest, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, "getUserResumes", addr)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte)
	digests := make([]hasher.Digest, 0, len(raw))
	for _, b := range raw {
		d, err := hasher.FromBytes(b[:])
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, nil
}

func (c *Contract) StoreCredential(ctx context.Context, kind CredentialKind, dataHash string) (TxHash, error) {
	return c.transact(ctx, "storeCredential", uint8(kind), dataHash)
}

func (c *Contract) GetUserCredential(ctx context.Context, owner string, kind CredentialKind) (Credential, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return Credential{}, err
	}
	out, err := c.call(ctx, "getUserCredential", addr, uint8(kind))
	if err != nil {
		return Credential{}, err
	}
	cred := *abi.ConvertType(out[0], new(onchainCredential)).(*onchainCredential)
	if cred.DataHash == "" && (cred.Timestamp == nil || cred.Timestamp.Sign() == 0) {
		return Credential{}, ErrCredentialNotFound
	}
	return Credential{
		Kind:      CredentialKind(cred.CredType),
		DataHash:  cred.DataHash,
		Timestamp: fromUnix(cred.Timestamp),
		Verified:  cred.Verified,
	}, nil
}

func (c *Contract) HasCredential(ctx context.Context, owner string, kind CredentialKind) (bool, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, "hasCredential", addr, uint8(kind))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}
