package proof

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/storagesync/storagesync/internal/errs"
)

// verifyAccount checks that the account proof's nodes resolve rootHash to
// an account record matching acc when walked via Keccak(address)
// (spec.md §4.D: "the account proof terminates at the block's state root").
func verifyAccount(rootHash common.Hash, addr common.Address, acc AccountRecord, nodes [][]byte) error {
	db := nodesToDB(nodes)
	path := crypto.Keccak256(addr.Bytes())
	val, err := trie.VerifyProof(rootHash, path, db)
	if err != nil {
		return errs.Wrap(errs.Verification, err, "account proof does not verify against state root", "address", addr, "root", rootHash)
	}
	want, err := rlp.EncodeToBytes(&wireAccount{
		Nonce:       acc.Nonce,
		Balance:     orZero(acc.Balance),
		StorageHash: acc.StorageHash,
		CodeHash:    acc.CodeHash,
	})
	if err != nil {
		return errs.Wrap(errs.Verification, err, "encode account record for comparison")
	}
	if string(val) != string(want) {
		return errs.New(errs.Verification, "account proof leaf does not match fetched account record", "address", addr)
	}
	return nil
}

// verifyStorageEntry checks that a single storage proof resolves
// storageHash to value when walked via Keccak(key) (spec.md §4.D: "each
// storage proof terminates at storageHash"). A proof that resolves to an
// empty leaf is valid only when value is the all-zero word (spec.md §3:
// "the all-zero value is semantically absent").
func verifyStorageEntry(storageHash common.Hash, e StorageEntry) error {
	db := nodesToDB(e.Nodes)
	path := crypto.Keccak256(e.Key.Bytes())
	val, err := trie.VerifyProof(storageHash, path, db)
	if err != nil {
		return errs.Wrap(errs.Verification, err, "storage proof does not verify against storage root", "key", e.Key, "root", storageHash)
	}
	want, err := rlp.EncodeToBytes(orZero(e.Value))
	if err != nil {
		return errs.Wrap(errs.Verification, err, "encode storage value for comparison")
	}
	if len(val) == 0 {
		if orZero(e.Value).Sign() != 0 {
			return errs.New(errs.Verification, "storage proof resolved to absence but value is non-zero", "key", e.Key)
		}
		return nil
	}
	if string(val) != string(want) {
		return errs.New(errs.Verification, "storage proof leaf does not match fetched value", "key", e.Key)
	}
	return nil
}

func nodesToDB(nodes [][]byte) *memorydb.Database {
	db := memorydb.New()
	for _, n := range nodes {
		db.Put(crypto.Keccak256(n), n)
	}
	return db
}
