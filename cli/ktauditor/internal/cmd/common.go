package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/coniks-sys/coniks-selfaudit/application"
	"github.com/coniks-sys/coniks-selfaudit/application/client"
	"github.com/coniks-sys/coniks-selfaudit/crypto/keyring"
	"github.com/coniks-sys/coniks-selfaudit/merkletree"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/protocol/selfaudit"
	"github.com/coniks-sys/coniks-selfaudit/protocol/verifier"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv/auditkv"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv/leveldbkv"
	"github.com/coniks-sys/coniks-selfaudit/utils"
	"github.com/spf13/cobra"
)

// An auditor wires the self-audit of the configured user to the API
// and to the local database.
type auditor struct {
	conf   *client.Config
	db     kv.DB
	logger *application.Logger
	api    *client.Client
	env    *selfaudit.Env
	self   *selfaudit.SelfAuditor
}

func loadAuditor(cmd *cobra.Command) (*auditor, error) {
	confPath := cmd.Flag("config").Value.String()
	conf := &client.Config{}
	if err := conf.Load(confPath, "toml"); err != nil {
		return nil, err
	}
	if conf.UserID == "" {
		return nil, fmt.Errorf("No user_id in %s", confPath)
	}
	logger, err := application.NewLogger(conf.Logger)
	if err != nil {
		return nil, err
	}

	api := client.New(conf)
	kr, err := keyring.Load(utils.ResolvePath(conf.KeyringPath, confPath), api)
	if err != nil {
		return nil, err
	}
	db, err := leveldbkv.OpenDB(utils.ResolvePath(conf.DatabasePath, confPath))
	if err != nil {
		return nil, err
	}

	env := &selfaudit.Env{
		KT:        api,
		Directory: api,
		Changes:   auditkv.NewChangeStore(db),
		Users:     api,
		Crypto:    kr,
		Clock:     api,
		Verifier: verifier.NewProofVerifier(
			verifier.NewSignedEpochValidator(conf.LogPubKey, api, conf.Policies),
			merkletree.NewPathVerifier()),
		Policies: conf.Policies,
		Logger:   logger,
	}
	return &auditor{
		conf:   conf,
		db:     db,
		logger: logger,
		api:    api,
		env:    env,
		self:   selfaudit.NewSelfAuditor(env, conf.AuditConcurrency),
	}, nil
}

// audit runs a pass if one is due, or unconditionally if force is
// set, and persists the resulting state.
func (a *auditor) audit(ctx context.Context, force bool) (protocol.AuditState, error) {
	state, err := auditkv.LoadAuditState(a.db, a.conf.UserID)
	if err != nil {
		return state, err
	}
	next, err := a.self.Run(ctx, a.conf.UserID, state, force)
	if err != nil {
		return state, err
	}
	if next == state {
		return state, nil
	}
	return next, auditkv.StoreAuditState(a.db, a.conf.UserID, next)
}

func (a *auditor) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("Cannot close the database", "error", err)
	}
	a.logger.Sync()
}

func printResult(w io.Writer, result *protocol.SelfAuditResult) {
	if result == nil {
		fmt.Fprintln(w, "No self-audit ran.")
		return
	}
	if !result.Succeeded() {
		fmt.Fprintf(w, "Self-audit at %d failed: %v\n", result.Timestamp, result.Err)
		return
	}
	fmt.Fprintf(w, "Self-audit at %d succeeded.\n", result.Timestamp)

	ids := make([]string, 0, len(result.Addresses))
	for id := range result.Addresses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := result.Addresses[id]
		switch r.Kind {
		case protocol.ResultWarning:
			fmt.Fprintf(w, "  address %s: %s (%s)\n", id, r.Kind, r.Warning)
		default:
			fmt.Fprintf(w, "  address %s: %s\n", id, r.Kind)
		}
	}
	for _, c := range result.Contacts {
		if c.Succeeded() {
			fmt.Fprintf(w, "  change %s of %s: ok\n", c.Change.ChangeID, c.Change.Email)
		} else {
			fmt.Fprintf(w, "  change %s of %s: %v\n", c.Change.ChangeID, c.Change.Email, c.Err)
		}
	}
}
