package services

import (
	"github.com/lawbid/lawbid_backend/internal/core/ports/payments"
	"github.com/lawbid/lawbid_backend/internal/core/ports/realtime"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
)

// NewServiceContainer wires the repositories, gateway and broadcaster into
// the service facades consumed by the handlers.
func NewServiceContainer(repos *portsrepo.RepositoryContainer, gateway payments.Gateway, broadcaster realtime.Broadcaster, currency string) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Request:    NewRequestService(repos.Request, broadcaster),
		Settlement: NewSettlementService(repos.Request, repos.Transaction, gateway, broadcaster, currency),
	}
}
