package warehouse

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

	"github.com/rs/zerolog"
)

// statementsPath is the warehouse statement-execution endpoint.
const statementsPath = "/api/2.0/sql/statements"

// defaultWaitTimeout asks the warehouse to hold the request open until the
// statement completes, up to this bound. The client's own context deadline
// is the hard client-side limit.
const defaultWaitTimeout = "30s"

// maxErrorBodyBytes caps how much of an HTTP error body is read for the
// error message.
const maxErrorBodyBytes = 4096

// Client executes one SQL statement against the remote warehouse.
// Implementations are assumed stateless and idempotent for the read-only
// analytical statements the dashboard issues.
type Client interface {
	Execute(ctx context.Context, statement string) (*ResultSet, error)
}

// Options configures a RESTClient.
type Options struct {
	// Host is the warehouse base URL (e.g. "https://dbc-123.cloud.example.com").
	Host string

	// Token is the bearer token sent with every request.
	Token string

	// WarehouseID selects the SQL warehouse executing the statements.
	WarehouseID string

	// Catalog and Schema scope unqualified names in statements.
	Catalog string
	Schema  string

	// WaitTimeout is the server-side wait bound (default "30s").
	WaitTimeout string

	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
}

// RESTClient talks to the warehouse statement-execution REST API.
type RESTClient struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewRESTClient creates a warehouse client for the given options.
// The host is normalized to an https URL, matching how the original service
// endpoints are configured (a bare hostname is accepted).
func NewRESTClient(opts Options, logger zerolog.Logger) (*RESTClient, error) {
	if opts.Host == "" {
		return nil, errors.New("warehouse host cannot be empty")
	}
	if opts.WarehouseID == "" {
		return nil, errors.New("warehouse ID cannot be empty")
	}
	if !strings.HasPrefix(opts.Host, "http://") && !strings.HasPrefix(opts.Host, "https://") {
		opts.Host = "https://" + opts.Host
	}
	opts.Host = strings.TrimRight(opts.Host, "/")
	if opts.WaitTimeout == "" {
		opts.WaitTimeout = defaultWaitTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &RESTClient{opts: opts, client: client, logger: logger}, nil
}

// Execute sends one statement and decodes the result.
// Exactly one network call is made per invocation; timeout and retry policy
// belong to the caller via ctx.
func (c *RESTClient) Execute(ctx context.Context, statement string) (*ResultSet, error) {
	body, err := json.Marshal(statementRequest{
		Statement:   statement,
		WarehouseID: c.opts.WarehouseID,
		Catalog:     c.opts.Catalog,
		Schema:      c.opts.Schema,
		WaitTimeout: c.opts.WaitTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode statement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Host+statementsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build statement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// Preserve context errors so callers can classify timeouts vs
		// connection failures.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(msg))),
		}
	}

	var sr statementResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&sr); decodeErr != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to decode statement response: %w", decodeErr)}
	}

	if sr.Status.State != StateSucceeded {
		stmtErr := &StatementError{State: sr.Status.State}
		if sr.Status.Error != nil {
			stmtErr.Code = sr.Status.Error.ErrorCode
			stmtErr.Message = sr.Status.Error.Message
		}
		c.logger.Warn().
			Str("statement_id", sr.StatementID).
			Str("state", sr.Status.State).
			Msg("statement execution failed")
		return nil, stmtErr
	}

	rs := sr.toResultSet()
	c.logger.Debug().
		Str("statement_id", sr.StatementID).
		Int("rows", rs.RowCount()).
		Dur("duration", time.Since(start)).
		Msg("statement executed")
	return rs, nil
}

// Ping verifies connectivity and credentials with a trivial statement.
func (c *RESTClient) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 1 as test_column")
	return err
}
