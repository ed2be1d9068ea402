// Package httptransport follows the plain net/http.Client request idiom used
// for other outbound HTTP clients in this module's style
// (http.NewRequestWithContext, a single *http.Client, a status-code check,
// then json.Decode), extended with the one thing that idiom doesn't need for
// an internal sidecar but this process does for its two AWS-fronted
// collaborators: every request to the graph store and the search index is
// SigV4-signed the same way the AWS SDK signs a service call, since both sit
// behind the same request-signing surface as every other provider API this
// process talks to.
package httptransport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/rs/zerolog/log"
)

// SignedClient POSTs a JSON body to a single endpoint, SigV4-signed against
// the given service/region, the way graphstore.Transport and
// searchindex.Transport both want.
type SignedClient struct {
	BaseURL string
	Service string
	Region string
	Credentials aws.CredentialsProvider
	HTTPClient *http.Client

	signer *v4.Signer
}

// New constructs a SignedClient with a bounded-timeout *http.Client, the
// same defensive default applied by this module's other outbound HTTP clients.
func New(baseURL, service, region string, creds aws.CredentialsProvider) *SignedClient {
	return &SignedClient{
		BaseURL: baseURL,
		Service: service,
		Region: region,
		Credentials: creds,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		signer: v4.NewSigner(),
	}
}

// envelope is the wire shape every operation POSTs: a named operation and
// its variables, mirroring the {operationName, variables} split of a
// GraphQL-style request without carrying a query document the graph store
// already knows how to resolve from the operation name alone.
type envelope struct {
	Operation string `json:"operation"`
	Variables map[string]any `json:"variables"`
}

// post signs and sends body, returning the raw response bytes on a 2xx
// status. extraHeaders are added before signing so they're covered by the
// SigV4 signature.
func (c *SignedClient) post(ctx context.Context, body []byte, extraHeaders map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httptransport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	hash := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(hash[:])

	creds, err := c.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("httptransport: retrieve credentials: %w", err)
	}
	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, c.Service, c.Region, time.Now()); err != nil {
		return nil, fmt.Errorf("httptransport: sign request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httptransport: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptransport: read response: %w", err)
	}

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, errPayloadTooLarge
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("httptransport: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// errPayloadTooLarge is treated as discoveryerrors.KindPayloadTooLarge by
// internal/graphstore's fetchPage, via IsPayloadTooLarge. It is kept as
// a sentinel here rather than importing internal/discoveryerrors, to avoid a
// signing-transport package depending on the error taxonomy package it's
// wired beneath.
var errPayloadTooLarge = fmt.Errorf("httptransport: payload too large")

// IsPayloadTooLarge reports whether err is the 413 sentinel this transport
// produces.
func IsPayloadTooLarge(err error) bool {
	return err == errPayloadTooLarge
}

// Do implements graphstore.Transport: every operation carries the
// `requester: discovery-process` tag header the graph store API requires.
func (c *SignedClient) Do(ctx context.Context, operation string, variables map[string]any) ([]byte, error) {
	body, err := json.Marshal(envelope{Operation: operation, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("httptransport: marshal request: %w", err)
	}
	log.Debug().Str("operation", operation).Str("service", c.Service).Msg("signed request")
	return c.post(ctx, body, map[string]string{"requester": "discovery-process"})
}

// unprocessedEnvelope is the search index's uniform response shape across
// index/update/deleteIndexed: each returns an unprocessedResources list.
type unprocessedEnvelope struct {
	UnprocessedResources []string `json:"unprocessedResources"`
}

// searchIndexDo implements the search index's Do shape, which returns
// unprocessed ids rather than a raw body. Named distinctly from Do because a
// single Go type cannot carry two methods named Do with different result
// types; SearchIndexTransport below exposes it as the interface wants.
func (c *SignedClient) searchIndexDo(ctx context.Context, operation string, payload map[string]any) ([]string, error) {
	body, err := json.Marshal(envelope{Operation: operation, Variables: payload})
	if err != nil {
		return nil, fmt.Errorf("httptransport: marshal request: %w", err)
	}
	log.Debug().Str("operation", operation).Str("service", c.Service).Msg("signed request")

	respBody, err := c.post(ctx, body, nil)
	if err != nil {
		return nil, err
	}

	var decoded unprocessedEnvelope
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("httptransport: decode response: %w", err)
	}
	return decoded.UnprocessedResources, nil
}

// SearchIndexTransport adapts a SignedClient to searchindex.Transport.
type SearchIndexTransport struct {
	*SignedClient
}

// Do implements searchindex.Transport.
func (t SearchIndexTransport) Do(ctx context.Context, operation string, payload map[string]any) ([]string, error) {
	return t.searchIndexDo(ctx, operation, payload)
}
