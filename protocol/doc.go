/*
Package protocol is a library for building key transparency clients that
audit their own key bindings against an untrusted, append-only
transparency log.

protocol defines the data exchanged with the log (signed key lists,
epochs, proofs, verified epochs), the records a client keeps locally
(address changes), and the interfaces through which the audit engine in
protocol/selfaudit reaches the log, the local store and the signing keys.

Error

This module defines the constants representing the results of the
consistency checks performed by the client, and the status of requests
made to the log. Every broken invariant is reported as a
*VerificationError; the audit code never downgrades one to a warning.

Policy

This module defines the time windows the client enforces: how old an
epoch may be before it is considered stale, how long the log keeps
epochs valid, and how often a self-audit runs.

Signed Key List

A signed key list (SKL) binds an email address to its public keys at a
point in time. The log publishes SKLs into epochs; an SKL whose data and
signature are both absent marks the address as obsolete.

Verified Epoch

A verified epoch is the client's own watermark: the last epoch and
revision it independently verified for an address. It is signed by the
client and stored on the server so that other devices can resume from it,
and its signature is re-verified on every fetch.

Address Change

An address change records a key-binding change (of the user's own address
or an observed contact) that the log has promised to include. The client
checks in a later epoch that the change was actually published, in the
same way a CONIKS client checks that a temporary binding was honoured.
*/
package protocol
