package extractor

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Event topics recognized by the extractor
var (
	// ERC-721 Transfer. ERC-20 shares the signature but indexes only two topics.
	transferEventSig       = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	transferSingleEventSig = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))
	transferBatchEventSig  = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))

	// CryptoPunks market events
	punkAssignEventSig   = crypto.Keccak256Hash([]byte("Assign(address,uint256)"))
	punkTransferEventSig = crypto.Keccak256Hash([]byte("PunkTransfer(address,address,uint256)"))
	punkBoughtEventSig   = crypto.Keccak256Hash([]byte("PunkBought(uint256,uint256,address,address)"))
)

// batchArguments describes the non-indexed (ids, values) payload of TransferBatch
var batchArguments = abi.Arguments{
	{Name: "ids", Type: mustNewType("uint256[]")},
	{Name: "values", Type: mustNewType("uint256[]")},
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
