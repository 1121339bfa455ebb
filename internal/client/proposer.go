package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/respectgame/api/internal/consensus"
	"golang.org/x/oauth2/clientcredentials"
)

const IdempotencyHeader = "Idempotency-Key"

// ProposerClient submits finalized rankings to the external chain-proposal service.
type ProposerClient struct {
	baseURL    string
	httpClient *http.Client
	observe    func(outcome string, elapsed time.Duration)
}

type ProposerConfig struct {
	BaseURL string
	Timeout time.Duration

	// OAuth2 client credentials. When ClientID is empty requests are sent
	// without an Authorization header.
	ClientID     string
	ClientSecret string
	TokenURL     string

	// Observe is called once per request with "success", "rejected" or "error".
	Observe func(outcome string, elapsed time.Duration)
}

var _ consensus.Proposer = (*ProposerClient)(nil)

func NewProposerClient(cfg ProposerConfig) *ProposerClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	}

	return &ProposerClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		observe:    cfg.Observe,
	}
}

type proposalResponse struct {
	ProposalID string `json:"proposalId"`
}

var proposalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("respectgame:proposal-body"))

// idempotencyKey prefers the caller's key and otherwise derives one from the
// request body, so a retried request never gets a fresh key.
func idempotencyKey(proposal consensus.Proposal, body []byte) string {
	if proposal.IdempotencyKey != "" {
		return proposal.IdempotencyKey
	}
	return uuid.NewSHA1(proposalNamespace, body).String()
}

// SubmitProposal posts the proposal and returns the external proposal id.
// 4xx responses wrap consensus.ErrProposalRejected.
func (c *ProposerClient) SubmitProposal(ctx context.Context, proposal consensus.Proposal) (id string, err error) {
	start := time.Now()
	defer func() {
		if c.observe == nil {
			return
		}
		outcome := "success"
		switch {
		case errors.Is(err, consensus.ErrProposalRejected):
			outcome = "rejected"
		case err != nil:
			outcome = "error"
		}
		c.observe(outcome, time.Since(start))
	}()

	reqBody, err := json.Marshal(proposal)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/proposals", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, idempotencyKey(proposal, reqBody))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: proposer returned status %d: %s", consensus.ErrProposalRejected, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("proposer returned status %d: %s", resp.StatusCode, string(body))
	}

	var result proposalResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode proposer response: %w", err)
	}
	if result.ProposalID == "" {
		return "", errors.New("proposer response has no proposal id")
	}
	return result.ProposalID, nil
}
