package ports

import (
	"context"
	"errors"

	"finsight/internal/core"
)

// Errors shared by collaborator implementations.
var (
	// ErrUnavailable means the collaborator could not be reached or did not
	// answer in time.
	ErrUnavailable = errors.New("service unavailable")
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned by Signup when the username or email is taken.
	ErrUserExists = errors.New("username or email already exists")
	// ErrDeferred is returned by a TransactionWriter that could not deliver
	// a write but queued it for a later retry.
	ErrDeferred = errors.New("transaction queued for retry")
)

// Ports for the external collaborators.
type (
	// TransactionReader returns the stored transactions of a user in the
	// order the backend keeps them.
	TransactionReader interface {
		ListTransactions(ctx context.Context, username string) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		AppendTransaction(ctx context.Context, username string, tx core.Transaction) error
	}

	TransactionRepository interface {
		TransactionReader
		TransactionWriter
	}

	UserDirectory interface {
		Login(ctx context.Context, username, password string) (core.User, error)
		Signup(ctx context.Context, username, email, password string) (core.User, error)
		EmailExists(ctx context.Context, email string) (bool, error)
	}

	// AnalyticsSource fetches the four insight panels of a user. A failed
	// panel carries its own error; FetchPanels itself never fails.
	AnalyticsSource interface {
		FetchPanels(ctx context.Context, username string) core.InsightPanels
		Refresh(ctx context.Context, username string) error
	}
)
