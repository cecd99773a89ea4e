// Package client implements the HTTP transport of the auditor: the
// repositories the self-audit reads the log, the key directory and the
// user's addresses from, and a clock that follows the server's time.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coniks-sys/coniks-selfaudit/application"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"golang.org/x/time/rate"
)

const (
	maxResponseSize = 4 << 20
	requestTimeout  = 30 * time.Second
	uidHeader       = "x-pm-uid"
)

// Client talks to the key transparency API at Address.
type Client struct {
	address string
	http    *http.Client
	limiter *rate.Limiter
	// server time minus local time, in seconds
	offset atomic.Int64
}

var (
	_ protocol.KeyTransparencyRepository = (*Client)(nil)
	_ protocol.PublicAddressRepository   = (*Client)(nil)
	_ protocol.UserAddressRepository     = (*Client)(nil)
	_ protocol.Clock                     = (*Client)(nil)
)

// NewClient returns a Client for the API at address which sends at
// most limit requests per second, in bursts of at most burst.
func NewClient(address string, limit rate.Limit, burst int) *Client {
	return &Client{
		address: address,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// New returns the Client described by conf. A non-positive rate
// disables the limiter.
func New(conf *Config) *Client {
	limit := rate.Limit(conf.RequestsPerSecond)
	if conf.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := conf.Burst
	if burst <= 0 {
		burst = 1
	}
	return NewClient(conf.Address, limit, burst)
}

// Now returns the current time corrected by the offset of the server's
// clock observed on the last response.
func (c *Client) Now() int64 {
	return time.Now().Unix() + c.offset.Load()
}

func (c *Client) observeDate(date string) {
	if date == "" {
		return
	}
	t, err := http.ParseTime(date)
	if err != nil {
		return
	}
	c.offset.Store(t.Unix() - time.Now().Unix())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values,
	userID string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.address + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		buf, err := application.MarshalRequest(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(uidHeader, userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observeDate(resp.Header.Get("Date"))

	msg, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := application.UnmarshalResponse(resp.StatusCode, msg, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, userID string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, userID, nil, out)
}

func epochPath(epochID int) string {
	return "/kt/v1/epochs/" + strconv.Itoa(epochID)
}

// GetEpoch returns the epoch epochID.
func (c *Client) GetEpoch(ctx context.Context, userID string, epochID int) (*protocol.Epoch, error) {
	epoch := new(protocol.Epoch)
	if err := c.get(ctx, epochPath(epochID), nil, userID, epoch); err != nil {
		return nil, err
	}
	return epoch, nil
}

// GetLatestEpoch returns the last epoch the log produced.
func (c *Client) GetLatestEpoch(ctx context.Context, userID string) (*protocol.Epoch, error) {
	epoch := new(protocol.Epoch)
	if err := c.get(ctx, "/kt/v1/epochs/latest", nil, userID, epoch); err != nil {
		return nil, err
	}
	return epoch, nil
}

// GetProof returns the proof of email in the epoch epochID.
func (c *Client) GetProof(ctx context.Context, userID string, epochID int,
	email string) (*protocol.Proof, error) {
	proof := new(protocol.Proof)
	path := epochPath(epochID) + "/proof/" + url.PathEscape(email)
	if err := c.get(ctx, path, nil, userID, proof); err != nil {
		return nil, err
	}
	return proof, nil
}

func verifiedEpochPath(addressID string) string {
	return "/kt/v1/verifiedepoch/" + url.PathEscape(addressID)
}

// GetVerifiedEpoch returns the watermark of addressID. It fails with
// an error matching protocol.ErrNotFound if none was uploaded.
func (c *Client) GetVerifiedEpoch(ctx context.Context, userID,
	addressID string) (*protocol.VerifiedEpoch, error) {
	ve := new(protocol.VerifiedEpoch)
	if err := c.get(ctx, verifiedEpochPath(addressID), nil, userID, ve); err != nil {
		return nil, err
	}
	return ve, nil
}

// UploadVerifiedEpoch replaces the watermark of addressID.
func (c *Client) UploadVerifiedEpoch(ctx context.Context, userID, addressID string,
	ve *protocol.VerifiedEpoch) error {
	return c.do(ctx, http.MethodPut, verifiedEpochPath(addressID), nil, userID, ve, nil)
}

type signedKeyListsResponse struct {
	SignedKeyLists []*protocol.SignedKeyList `json:"SignedKeyLists"`
}

// GetSKLsAfterEpoch returns the SKLs of email published after epochID.
func (c *Client) GetSKLsAfterEpoch(ctx context.Context, userID string, epochID int,
	email string) ([]*protocol.SignedKeyList, error) {
	query := url.Values{
		"AfterEpochID": {strconv.Itoa(epochID)},
		"Email":        {email},
	}
	var resp signedKeyListsResponse
	if err := c.get(ctx, "/keys/signedkeylists", query, userID, &resp); err != nil {
		return nil, err
	}
	return resp.SignedKeyLists, nil
}

// GetSKLAtEpoch returns the SKL of email that was current at epochID.
func (c *Client) GetSKLAtEpoch(ctx context.Context, userID string, epochID int,
	email string) (*protocol.SignedKeyList, error) {
	query := url.Values{
		"EpochID": {strconv.Itoa(epochID)},
		"Email":   {email},
	}
	skl := new(protocol.SignedKeyList)
	if err := c.get(ctx, "/keys/signedkeylist", query, userID, skl); err != nil {
		return nil, err
	}
	return skl, nil
}

// GetPublicAddress returns the public keys of email.
func (c *Client) GetPublicAddress(ctx context.Context, userID,
	email string) (*protocol.PublicAddress, error) {
	addr := new(protocol.PublicAddress)
	if err := c.get(ctx, "/keys/all", url.Values{"Email": {email}}, userID, addr); err != nil {
		return nil, err
	}
	if addr.Email == "" {
		addr.Email = email
	}
	return addr, nil
}

type addressesResponse struct {
	Addresses []*protocol.UserAddress `json:"Addresses"`
}

// GetAddresses returns the addresses of userID.
func (c *Client) GetAddresses(ctx context.Context, userID string) ([]*protocol.UserAddress, error) {
	var resp addressesResponse
	if err := c.get(ctx, "/core/v4/addresses", nil, userID, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

type settingsResponse struct {
	Enabled bool `json:"Enabled"`
}

// IsKeyTransparencyEnabled reports whether the account of userID is
// covered by the log.
func (c *Client) IsKeyTransparencyEnabled(ctx context.Context, userID string) (bool, error) {
	var resp settingsResponse
	if err := c.get(ctx, "/kt/v1/settings", nil, userID, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}
