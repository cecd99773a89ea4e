package selfaudit

import (
	"context"
	"sort"
	"sync"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the audits a pass runs at the same time.
const DefaultConcurrency = 4

// SelfAuditor runs self-audit passes for a user.
type SelfAuditor struct {
	env         *Env
	store       *EpochStore
	addresses   *AddressAuditor
	changes     *ChangeAuditor
	concurrency int
}

// NewSelfAuditor returns a SelfAuditor that runs at most concurrency
// audits at the same time. A non-positive concurrency means
// DefaultConcurrency.
func NewSelfAuditor(env *Env, concurrency int) *SelfAuditor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	store := NewEpochStore(env)
	return &SelfAuditor{
		env:         env,
		store:       store,
		addresses:   NewAddressAuditor(env, store, NewInitialEpochBuilder(env)),
		changes:     NewChangeAuditor(env),
		concurrency: concurrency,
	}
}

// Run runs a pass over the user's addresses, unless key transparency is
// disabled for the user or a pass already ran within the self-audit
// interval and force is false. It returns the state to persist, which
// is state itself when nothing ran.
func (s *SelfAuditor) Run(ctx context.Context, userID string,
	state protocol.AuditState, force bool) (protocol.AuditState, error) {
	log := s.env.logger().With("user", userID)
	enabled, err := s.env.Users.IsKeyTransparencyEnabled(ctx, userID)
	if err != nil {
		return state, err
	}
	if !enabled {
		log.Debug("Key transparency is disabled, skipping self-audit")
		return state, nil
	}
	if !force && s.env.now()-state.LastRun < s.env.Policies.SelfAuditInterval {
		log.Debug("Self-audit ran recently, skipping", "lastRun", state.LastRun)
		return state, nil
	}
	addresses, err := s.env.Users.GetAddresses(ctx, userID)
	if err != nil {
		return state, err
	}
	result := s.SelfAudit(ctx, userID, addresses)
	return protocol.AuditState{LastRun: result.Timestamp, Last: result}, nil
}

// SelfAudit checks the pending address changes and audits addresses,
// concurrently. Change failures are reported per change. Any address
// failure fails the pass, and then no watermark is uploaded.
func (s *SelfAuditor) SelfAudit(ctx context.Context, userID string,
	addresses []*protocol.UserAddress) *protocol.SelfAuditResult {
	log := s.env.logger().With("user", userID)
	result := &protocol.SelfAuditResult{Timestamp: s.env.now()}

	var (
		wg        sync.WaitGroup
		contacts  []protocol.AddressChangeAuditResult
		changeErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		contacts, changeErr = s.auditChanges(ctx, userID)
	}()

	results, watermarks, err := s.auditAddresses(ctx, userID, addresses)
	wg.Wait()
	if err == nil {
		err = changeErr
	}
	if err == nil {
		err = s.uploadWatermarks(ctx, userID, watermarks)
	}
	if err != nil {
		log.Error("Self-audit failed", "error", err)
		result.Err = err
		return result
	}
	result.Contacts = contacts
	result.Addresses = results
	log.Info("Self-audit done", "addresses", len(results), "changes", len(contacts))
	return result
}

func (s *SelfAuditor) auditChanges(ctx context.Context,
	userID string) ([]protocol.AddressChangeAuditResult, error) {
	changes, err := s.env.Changes.GetAllAddressChanges(ctx, userID)
	if err != nil {
		return nil, err
	}
	log := s.env.logger().With("user", userID)
	contacts := make([]protocol.AddressChangeAuditResult, len(changes))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, change := range changes {
		i, change := i, change
		g.Go(func() error {
			err := s.changes.Audit(ctx, userID, change)
			if err != nil {
				log.Warn("Address change audit failed", "change", change.ChangeID,
					"email", change.Email, "error", err)
			}
			contacts[i] = protocol.AddressChangeAuditResult{Change: change, Err: err}
			return nil
		})
	}
	g.Wait()
	return contacts, nil
}

func (s *SelfAuditor) auditAddresses(ctx context.Context, userID string,
	addresses []*protocol.UserAddress) (map[string]protocol.UserAddressAuditResult,
	map[string]*protocol.VerifiedEpochData, error) {
	results := make([]protocol.UserAddressAuditResult, len(addresses))
	watermarks := make([]*protocol.VerifiedEpochData, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			result, watermark, err := s.addresses.verify(gctx, userID, addr)
			if err != nil {
				return &addressError{addressID: addr.AddressID, err: err}
			}
			results[i], watermarks[i] = result, watermark
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byID := make(map[string]protocol.UserAddressAuditResult, len(addresses))
	pending := make(map[string]*protocol.VerifiedEpochData)
	for i, addr := range addresses {
		byID[addr.AddressID] = results[i]
		if watermarks[i] != nil {
			pending[addr.AddressID] = watermarks[i]
		}
	}
	return byID, pending, nil
}

// uploadWatermarks uploads the watermarks in address order. A failed
// upload does not stop the others: each watermark was verified on its
// own, and the address whose upload failed is audited again from its
// previous watermark on the next pass.
func (s *SelfAuditor) uploadWatermarks(ctx context.Context, userID string,
	watermarks map[string]*protocol.VerifiedEpochData) error {
	ids := make([]string, 0, len(watermarks))
	for addressID := range watermarks {
		ids = append(ids, addressID)
	}
	sort.Strings(ids)

	var errs error
	for _, addressID := range ids {
		if err := s.store.Upload(ctx, userID, addressID, watermarks[addressID]); err != nil {
			errs = multierr.Append(errs, &addressError{addressID: addressID, err: err})
		}
	}
	return errs
}

type addressError struct {
	addressID string
	err       error
}

func (e *addressError) Error() string {
	return "audit address " + e.addressID + ": " + e.err.Error()
}

func (e *addressError) Unwrap() error {
	return e.err
}
