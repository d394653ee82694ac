package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Users() UserRepositoryInterface
	APIKeys() APIKeyRepositoryInterface
}

// TxRunner executes a function with repositories bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
