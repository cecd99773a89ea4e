/*
Package merkletree verifies authentication paths of the transparency
log's Merkle prefix tree.

The tree is a binary prefix tree indexed by the digest of an address's
normalized email. Each leaf commits to its index, its level, the digest
of the value stored for the address (SKL data or an obsolescence token)
and the address's revision. Absence is proved by an empty branch along
the lookup index.

Only the client side lives here: the log builds the tree, the client
recomputes the root from the path it is given and compares it with the
tree hash of a signed epoch.
*/
package merkletree
