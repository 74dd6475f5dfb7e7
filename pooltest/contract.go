// Package pooltest provides a backend-agnostic contract suite for
// datapool dialers.
package pooltest

import (
	"context"
	"testing"
	"time"

	"github.com/goforj/datapool/poolcore"
)

// Options configures the shared dialer contract checks.
type Options struct {
	// Statement is executed during the query check.
	Statement string
	// Params accompany Statement.
	Params []any
	// ExpectRows requires at least one row back when true.
	ExpectRows bool
	// SkipQuery disables the query check for backends where a generic
	// statement is unavailable.
	SkipQuery bool
	// DialTimeout bounds each dial. Defaults to 5s.
	DialTimeout time.Duration
}

// RunDialerContract verifies the behaviors every dialer must provide:
// dialing yields a usable connection, probes pass on a fresh
// connection, queries run, close is clean, and a second dial works
// after the first connection is gone.
func RunDialerContract(t *testing.T, dialer poolcore.Dialer, opts Options) {
	t.Helper()

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dial := func() poolcore.Conn {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		conn, err := dialer.Dial(ctx)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		if conn == nil {
			t.Fatalf("dial returned nil connection")
		}
		return conn
	}

	ctx := context.Background()

	conn := dial()
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("ping on fresh connection failed: %v", err)
	}

	if !opts.SkipQuery {
		rows, err := conn.Query(ctx, opts.Statement, opts.Params...)
		if err != nil {
			t.Fatalf("query %q failed: %v", opts.Statement, err)
		}
		if rows == nil {
			t.Fatalf("query returned nil rows; want empty slice for rowless results")
		}
		if opts.ExpectRows && len(rows) == 0 {
			t.Fatalf("query %q returned no rows", opts.Statement)
		}
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// A dialer must survive its connections.
	second := dial()
	if err := second.Ping(ctx); err != nil {
		t.Fatalf("ping after redial failed: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if dialer.Driver() == "" {
		t.Fatalf("dialer must report a driver")
	}
}
