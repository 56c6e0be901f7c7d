// Package transfer packs large plaintexts into bundles before they are
// sealed.
//
// A bundle is built in four steps:
//   - Split the message into fixed-size chunks, hashing each one
//   - LZ4-compress every chunk where that makes it smaller
//   - Serialize the chunk table and spread it over Reed-Solomon shards
//   - Commit to the shard hashes with a Merkle root
//
// Counter mode does not propagate bit errors across blocks, so damage to the
// decrypted bundle stays inside the shards it touched. Unpack drops shards
// whose hash does not verify against the root and rebuilds them from parity.
package transfer
