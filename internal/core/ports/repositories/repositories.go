package repositories

// RepositoryContainer groups the concrete repositories handed to the service
// layer, so wiring in main stays a single value.
type RepositoryContainer struct {
	Request     RequestRepositoryFacade
	Transaction TransactionRepositoryFacade
}
