// Package handlers implements the admin HTTP surface (§6/§4.7): a thin
// adapter translating gin requests into Catalog/Installer/Audit/Dispatcher
// operations. Handlers do not own business logic — every rule (uniqueness,
// dry validation, cascade ordering) lives in the package it names.
package handlers

import (
	"go.uber.org/zap"

	"webhookgw.io/gateway/internal/audit"
	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/ingress"
	"webhookgw.io/gateway/internal/installer"
)

// Server holds the collaborators every admin/ingress handler needs.
type Server struct {
	cat  *catalog.Catalog
	ins  *installer.Installer
	eng  *engine.Handle
	log  *audit.Log
	orch *ingress.Orchestrator
	zlog *zap.Logger
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Catalog      *catalog.Catalog
	Installer    *installer.Installer
	Engine       *engine.Handle
	Audit        *audit.Log
	Orchestrator *ingress.Orchestrator
	Logger       *zap.Logger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		cat:  deps.Catalog,
		ins:  deps.Installer,
		eng:  deps.Engine,
		log:  deps.Audit,
		orch: deps.Orchestrator,
		zlog: deps.Logger,
	}
}
