package selfaudit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/crypto/keyring"
	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/merkletree"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/protocol/verifier"
)

const (
	now       = int64(1700000000)
	userID    = "user-1"
	addressID = "address-1"
	email     = "alice@proton.black"
)

var policies = protocol.DefaultPolicies()

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func unprocessable() error {
	return &protocol.APIError{Status: 422, Code: protocol.ReqUnprocessable}
}

func notFound() error {
	return &protocol.APIError{Status: http.StatusNotFound, Code: protocol.ReqNotFound}
}

type proofKey struct {
	epochID int
	email   string
}

// fakeLog serves epochs whose tree holds a single leaf, so that every
// proof it serves verifies with an empty authentication path.
type fakeLog struct {
	t        *testing.T
	mu       sync.Mutex
	logKey   sign.PrivateKey
	epochs   map[int]*protocol.Epoch
	proofs   map[proofKey]*protocol.Proof
	latest   int
	verified map[string]*protocol.VerifiedEpoch
	uploads  int32
	// uploads for these addresses fail with a 422
	rejected map[string]bool
}

func newFakeLog(t *testing.T) *fakeLog {
	return &fakeLog{
		t:        t,
		logKey:   crypto.NewStaticTestLogKey(),
		epochs:   make(map[int]*protocol.Epoch),
		proofs:   make(map[proofKey]*protocol.Proof),
		verified: make(map[string]*protocol.VerifiedEpoch),
	}
}

func (l *fakeLog) publish(epochID int, certificateTime int64, addr string,
	value *string, proof *protocol.Proof) {
	root, err := merkletree.RootHash(protocol.NormalizeEmail(addr), value, proof)
	if err != nil {
		l.t.Fatal(err)
	}
	prev := hex.EncodeToString(crypto.Digest([]byte("genesis")))
	tree := hex.EncodeToString(root)
	chain, err := verifier.ChainHash(prev, tree)
	if err != nil {
		l.t.Fatal(err)
	}
	e := &protocol.Epoch{
		EpochID:           epochID,
		TreeHash:          tree,
		PreviousChainHash: prev,
		ChainHash:         chain,
		CertificateTime:   certificateTime,
	}
	e.Signature = l.logKey.Sign(e.Serialize())

	l.mu.Lock()
	defer l.mu.Unlock()
	l.epochs[epochID] = e
	l.proofs[proofKey{epochID, protocol.NormalizeEmail(addr)}] = proof
	if epochID > l.latest {
		l.latest = epochID
	}
}

// include publishes an existence proof for skl.
func (l *fakeLog) include(epochID int, certificateTime int64, addr string,
	skl *protocol.SignedKeyList, revision int) {
	l.publish(epochID, certificateTime, addr, skl.Data, &protocol.Proof{
		Type:     protocol.ProofExistence,
		Revision: intPtr(revision),
	})
}

// obsolete publishes an obsolescence proof dated at tokenTime.
func (l *fakeLog) obsolete(epochID int, certificateTime int64, addr string,
	tokenTime int64, revision int) {
	token := fmt.Sprintf("%016x", tokenTime) + "00ff"
	l.publish(epochID, certificateTime, addr, &token, &protocol.Proof{
		Type:              protocol.ProofObsolescence,
		Revision:          intPtr(revision),
		ObsolescenceToken: &token,
	})
}

// absent publishes an absence proof.
func (l *fakeLog) absent(epochID int, certificateTime int64, addr string) {
	l.publish(epochID, certificateTime, addr, nil, &protocol.Proof{Type: protocol.ProofAbsence})
}

func (l *fakeLog) GetEpoch(ctx context.Context, userID string, epochID int) (*protocol.Epoch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.epochs[epochID]
	if !ok {
		return nil, unprocessable()
	}
	return e, nil
}

func (l *fakeLog) GetLatestEpoch(ctx context.Context, userID string) (*protocol.Epoch, error) {
	l.mu.Lock()
	latest := l.latest
	l.mu.Unlock()
	return l.GetEpoch(ctx, userID, latest)
}

func (l *fakeLog) GetProof(ctx context.Context, userID string, epochID int,
	addr string) (*protocol.Proof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.proofs[proofKey{epochID, protocol.NormalizeEmail(addr)}]
	if !ok {
		return nil, unprocessable()
	}
	return p, nil
}

func (l *fakeLog) GetVerifiedEpoch(ctx context.Context, userID, addressID string) (*protocol.VerifiedEpoch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ve, ok := l.verified[addressID]
	if !ok {
		return nil, notFound()
	}
	return ve, nil
}

func (l *fakeLog) UploadVerifiedEpoch(ctx context.Context, userID, addressID string,
	ve *protocol.VerifiedEpoch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rejected[addressID] {
		return unprocessable()
	}
	l.verified[addressID] = ve
	atomic.AddInt32(&l.uploads, 1)
	return nil
}

func (l *fakeLog) uploadCount() int {
	return int(atomic.LoadInt32(&l.uploads))
}

// watermark returns the parsed watermark of addressID, or nil.
func (l *fakeLog) watermark(addressID string) *protocol.VerifiedEpochData {
	l.mu.Lock()
	ve, ok := l.verified[addressID]
	l.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := protocol.ParseVerifiedEpochData(ve.Data)
	if err != nil {
		l.t.Fatal(err)
	}
	return data
}

type fakeDirectory struct {
	mu      sync.Mutex
	history map[string][]*protocol.SignedKeyList
	atEpoch map[proofKey]*protocol.SignedKeyList
	public  map[string]*protocol.PublicAddress
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		history: make(map[string][]*protocol.SignedKeyList),
		atEpoch: make(map[proofKey]*protocol.SignedKeyList),
		public:  make(map[string]*protocol.PublicAddress),
	}
}

func (d *fakeDirectory) GetSKLsAfterEpoch(ctx context.Context, userID string, epochID int,
	addr string) ([]*protocol.SignedKeyList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ret []*protocol.SignedKeyList
	for _, skl := range d.history[addr] {
		if skl.MinEpochID == nil || *skl.MinEpochID > epochID {
			ret = append(ret, skl)
		}
	}
	return ret, nil
}

func (d *fakeDirectory) GetSKLAtEpoch(ctx context.Context, userID string, epochID int,
	addr string) (*protocol.SignedKeyList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	skl, ok := d.atEpoch[proofKey{epochID, addr}]
	if !ok {
		return nil, unprocessable()
	}
	return skl, nil
}

func (d *fakeDirectory) GetPublicAddress(ctx context.Context, userID, addr string) (*protocol.PublicAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pa, ok := d.public[addr]
	if !ok {
		return nil, notFound()
	}
	return pa, nil
}

type fakeChanges struct {
	mu      sync.Mutex
	changes []*protocol.AddressChange
	removed int
}

func (c *fakeChanges) GetAllAddressChanges(ctx context.Context, userID string) ([]*protocol.AddressChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ret []*protocol.AddressChange
	for _, change := range c.changes {
		if change.UserID == userID {
			ret = append(ret, change)
		}
	}
	return ret, nil
}

func (c *fakeChanges) GetAddressChangesForAddress(ctx context.Context, userID,
	addr string) ([]*protocol.AddressChange, error) {
	all, _ := c.GetAllAddressChanges(ctx, userID)
	var ret []*protocol.AddressChange
	for _, change := range all {
		if change.Email == addr {
			ret = append(ret, change)
		}
	}
	return ret, nil
}

func (c *fakeChanges) StoreAddressChange(ctx context.Context, change *protocol.AddressChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, change)
	return nil
}

func (c *fakeChanges) RemoveAddressChange(ctx context.Context, change *protocol.AddressChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, stored := range c.changes {
		if stored.ChangeID == change.ChangeID {
			c.changes = append(c.changes[:i], c.changes[i+1:]...)
			c.removed++
			return nil
		}
	}
	return nil
}

func (c *fakeChanges) RemoveAddressChangesForAddress(ctx context.Context, userID, addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.changes[:0]
	for _, stored := range c.changes {
		if stored.UserID == userID && stored.Email == addr {
			c.removed++
			continue
		}
		kept = append(kept, stored)
	}
	c.changes = kept
	return nil
}

func (c *fakeChanges) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

type fakeUsers struct {
	addresses []*protocol.UserAddress
	disabled  bool
	calls     int32
}

func (u *fakeUsers) GetAddresses(ctx context.Context, userID string) ([]*protocol.UserAddress, error) {
	atomic.AddInt32(&u.calls, 1)
	return u.addresses, nil
}

func (u *fakeUsers) IsKeyTransparencyEnabled(ctx context.Context, userID string) (bool, error) {
	return !u.disabled, nil
}

// fixture wires an Env on top of the fakes, with a real keyring, the
// signed epoch validator and the Merkle path verifier.
type fixture struct {
	t       *testing.T
	now     int64
	env     *Env
	log     *fakeLog
	dir     *fakeDirectory
	changes *fakeChanges
	users   *fakeUsers
	sk      sign.PrivateKey
	key     protocol.PublicKey
	keyList string
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:       t,
		now:     now,
		log:     newFakeLog(t),
		dir:     newFakeDirectory(),
		changes: &fakeChanges{},
		users:   &fakeUsers{},
		sk:      crypto.NewStaticTestSigningKey(),
	}
	clock := protocol.ClockFunc(func() int64 { return atomic.LoadInt64(&f.now) })
	kr := keyring.New(clock)
	kr.Add(addressID, f.sk)
	kr.Add("address-2", f.sk)
	key, err := kr.PublicKey(addressID)
	if err != nil {
		t.Fatal(err)
	}
	f.key = key
	fingerprint, _ := kr.Fingerprint(key)
	sha256Fingerprints, _ := kr.SHA256Fingerprints(key)
	keyList, err := json.Marshal([]protocol.KeyListEntry{{
		Fingerprint:        fingerprint,
		SHA256Fingerprints: sha256Fingerprints,
		Flags:              key.Flags,
		Primary:            1,
	}})
	if err != nil {
		t.Fatal(err)
	}
	f.keyList = string(keyList)

	logKey, _ := f.log.logKey.Public()
	f.env = &Env{
		KT:        f.log,
		Directory: f.dir,
		Changes:   f.changes,
		Users:     f.users,
		Crypto:    kr,
		Clock:     clock,
		Verifier: verifier.NewProofVerifier(
			verifier.NewSignedEpochValidator(logKey, clock, policies),
			merkletree.NewPathVerifier()),
		Policies: policies,
	}
	return f
}

func (f *fixture) setNow(ts int64) {
	atomic.StoreInt64(&f.now, ts)
}

// skl returns an SKL of the fixture's key list signed at ts.
func (f *fixture) skl(ts int64, minEpochID, maxEpochID *int) *protocol.SignedKeyList {
	sig := f.sk.SignWithContext(protocol.KTSKLSignatureContext, ts, []byte(f.keyList))
	return &protocol.SignedKeyList{
		Data:               strPtr(f.keyList),
		Signature:          &sig,
		MinEpochID:         minEpochID,
		MaxEpochID:         maxEpochID,
		ExpectedMinEpochID: intPtr(1),
	}
}

func (f *fixture) address(active *protocol.SignedKeyList) *protocol.UserAddress {
	return &protocol.UserAddress{
		AddressID:     addressID,
		Email:         email,
		Enabled:       true,
		Keys:          []protocol.PublicKey{f.key},
		SignedKeyList: active,
	}
}

// history sets the SKLs the directory serves for email, oldest first.
func (f *fixture) history(skls ...*protocol.SignedKeyList) {
	f.dir.mu.Lock()
	defer f.dir.mu.Unlock()
	f.dir.history[email] = skls
}

// setWatermark uploads a watermark signed with the address key.
func (f *fixture) setWatermark(data protocol.VerifiedEpochData) {
	if err := NewEpochStore(f.env).Upload(context.Background(), userID, addressID, &data); err != nil {
		f.t.Fatal(err)
	}
	atomic.StoreInt32(&f.log.uploads, 0)
}
