package handlers

import (
	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/config"
	"brewdesk-alert-services/internal/session"

	"go.uber.org/zap"
)

type Handler struct {
	Logger   *zap.Logger
	Config   config.Config
	Sessions *session.Manager
	Bridge   *bridge.Hub
}
