package handler

import (
	childrendomain "checkin-app-go/internal/domain/children"
	rosterdomain "checkin-app-go/internal/domain/roster"
	sessionsdomain "checkin-app-go/internal/domain/sessions"
	"checkin-app-go/pkg/logger"
)

type Handlers struct {
	Sessions *sessionsdomain.Service
	Roster   *rosterdomain.Service
	Children *childrendomain.Service
	log      logger.Logger
}

func New(sessions *sessionsdomain.Service, roster *rosterdomain.Service, children *childrendomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Sessions: sessions,
		Roster:   roster,
		Children: children,
		log:      log,
	}
}
