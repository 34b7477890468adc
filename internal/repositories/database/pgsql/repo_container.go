package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
)

// NewRepositoryContainer wires every pgsql repository over one shared pool.
func NewRepositoryContainer(pool *pgxpool.Pool) portsrepo.RepositoryContainer {
	return portsrepo.RepositoryContainer{
		Request:     newPgxRequestRepository(pool),
		Transaction: newPgxTransactionRepository(pool),
	}
}
