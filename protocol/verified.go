package protocol

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// VerifiedEpochData is the client's watermark for one address: the last
// epoch and revision it verified, and the creation time of the SKL it
// verified last.
type VerifiedEpochData struct {
	EpochID         int   `json:"EpochID"`
	Revision        int   `json:"Revision"`
	SKLCreationTime int64 `json:"SKLCreationTime"`
}

// Serialize returns the canonical JSON form (RFC 8785) of d, which is
// what the client signs.
func (d *VerifiedEpochData) Serialize() (string, error) {
	buf, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(buf)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// ParseVerifiedEpochData decodes the serialized form of a watermark.
func ParseVerifiedEpochData(data string) (*VerifiedEpochData, error) {
	d := new(VerifiedEpochData)
	if err := json.Unmarshal([]byte(data), d); err != nil {
		return nil, err
	}
	return d, nil
}

// VerifiedEpoch is the wire form of a watermark, as stored on the server.
// Signature is the armored signature over Data.
type VerifiedEpoch struct {
	Data      string `json:"Data"`
	Signature string `json:"Signature"`
}
