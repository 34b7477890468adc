package services

// ServiceContainer groups the service facades for route registration.
type ServiceContainer struct {
	Request    RequestSvcFacade
	Settlement SettlementSvcFacade
}
