// Package erasure adds Reed-Solomon parity to a byte stream so that a
// bounded number of damaged shards can be rebuilt instead of rejected.
//
// With d data shards and p parity shards any p shards may be lost. Shards
// are detected as lost by the caller (for example by hash) and passed in
// as nil.
package erasure
