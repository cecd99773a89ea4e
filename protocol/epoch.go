package protocol

import (
	"github.com/coniks-sys/coniks-selfaudit/utils"
)

// Epoch is one checkpoint of the transparency log. TreeHash is the
// hex-encoded root of the log's Merkle tree at that epoch, and ChainHash
// links it to the previous epoch. The log signs the serialized epoch and
// attests to it from CertificateTime on.
type Epoch struct {
	EpochID           int    `json:"EpochID"`
	TreeHash          string `json:"TreeHash"`
	PreviousChainHash string `json:"PrevChainHash"`
	ChainHash         string `json:"ChainHash"`
	CertificateTime   int64  `json:"CertificateTime"`
	Signature         []byte `json:"Signature"`
}

// Serialize serializes the epoch without its signature, as signed by
// the log.
func (e *Epoch) Serialize() []byte {
	var epochBytes []byte
	epochBytes = append(epochBytes, utils.LongToBytes(int64(e.EpochID))...)
	epochBytes = append(epochBytes, []byte(e.TreeHash)...)
	epochBytes = append(epochBytes, []byte(e.PreviousChainHash)...)
	epochBytes = append(epochBytes, []byte(e.ChainHash)...)
	epochBytes = append(epochBytes, utils.LongToBytes(e.CertificateTime)...)
	return epochBytes
}
