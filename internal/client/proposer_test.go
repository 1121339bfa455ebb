package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/respectgame/api/internal/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProposal = consensus.Proposal{
	GroupNumber:   "3",
	MeetingNumber: 12,
	Rankings:      []string{"0xc", "0xb", "0xa"},
	Metadata:      consensus.ProposalMetadata{Title: "Weekly"},
}

func TestSubmitProposal(t *testing.T) {
	var got consensus.Proposal
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proposals", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, err := uuid.Parse(r.Header.Get(IdempotencyHeader))
		assert.NoError(t, err)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"proposalId":"p-1"}`))
	}))
	defer srv.Close()

	var outcomes []string
	c := NewProposerClient(ProposerConfig{
		BaseURL: srv.URL + "/",
		Observe: func(outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) },
	})

	id, err := c.SubmitProposal(context.Background(), testProposal)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
	assert.Equal(t, testProposal, got)
	assert.Equal(t, []string{"success"}, outcomes)
}

func TestSubmitProposalReusesIdempotencyKey(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		_, _ = w.Write([]byte(`{"proposalId":"p-1"}`))
	}))
	defer srv.Close()

	c := NewProposerClient(ProposerConfig{BaseURL: srv.URL})
	for i := 0; i < 2; i++ {
		_, err := c.SubmitProposal(context.Background(), testProposal)
		require.NoError(t, err)
	}

	keyed := testProposal
	keyed.IdempotencyKey = consensus.SubmissionKey(12, 7)
	for i := 0; i < 2; i++ {
		_, err := c.SubmitProposal(context.Background(), keyed)
		require.NoError(t, err)
	}

	require.Len(t, keys, 4)
	assert.Equal(t, keys[0], keys[1], "identical retries share a key")
	assert.Equal(t, consensus.SubmissionKey(12, 7), keys[2])
	assert.Equal(t, keys[2], keys[3])
	assert.NotEqual(t, keys[0], keys[2])
}

func TestSubmitProposalRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate meeting", http.StatusConflict)
	}))
	defer srv.Close()

	var outcomes []string
	c := NewProposerClient(ProposerConfig{
		BaseURL: srv.URL,
		Observe: func(outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) },
	})

	_, err := c.SubmitProposal(context.Background(), testProposal)
	assert.ErrorIs(t, err, consensus.ErrProposalRejected)
	assert.Contains(t, err.Error(), "duplicate meeting")
	assert.Equal(t, []string{"rejected"}, outcomes)
}

func TestSubmitProposalServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewProposerClient(ProposerConfig{BaseURL: srv.URL}).SubmitProposal(context.Background(), testProposal)
	require.Error(t, err)
	assert.NotErrorIs(t, err, consensus.ErrProposalRejected)
}

func TestSubmitProposalMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewProposerClient(ProposerConfig{BaseURL: srv.URL}).SubmitProposal(context.Background(), testProposal)
	assert.Error(t, err)
}

func TestSubmitProposalWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/proposals", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"proposalId":"p-2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewProposerClient(ProposerConfig{
		BaseURL:      srv.URL,
		ClientID:     "respect",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})
	id, err := c.SubmitProposal(context.Background(), testProposal)
	require.NoError(t, err)
	assert.Equal(t, "p-2", id)
}
